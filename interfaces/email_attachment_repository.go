package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/internal/models"
)

// AttachmentFile pairs attachment metadata with its raw content on the
// way into object storage.
type AttachmentFile struct {
	ID   string
	Data []byte
}

type EmailAttachmentRepository interface {
	// Store persists the metadata row and, when file is non-nil, uploads
	// the content to object storage first.
	Store(ctx context.Context, attachment *models.EmailAttachment, file *AttachmentFile) (string, error)
	ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
}

// StorageService abstracts the S3-compatible object store holding
// attachment content.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}
