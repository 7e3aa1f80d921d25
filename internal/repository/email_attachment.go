package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type emailAttachmentRepository struct {
	db      *gorm.DB
	storage interfaces.StorageService
}

func NewEmailAttachmentRepository(db *gorm.DB, storageService interfaces.StorageService) interfaces.EmailAttachmentRepository {
	return &emailAttachmentRepository{
		db:      db,
		storage: storageService,
	}
}

// Store uploads the content first so a metadata row never points at a
// key that was not written.
func (r *emailAttachmentRepository) Store(ctx context.Context, attachment *models.EmailAttachment, file *interfaces.AttachmentFile) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.Store")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if attachment == nil || attachment.EmailID == "" {
		return "", ErrInvalidInput
	}

	if attachment.ID == "" {
		attachment.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}

	if file != nil {
		if attachment.StorageKey == "" {
			attachment.StorageKey = fmt.Sprintf("%s/%s", attachment.EmailID, attachment.ID)
		}
		attachment.StorageBucket = r.storage.Bucket()

		if err := r.storage.Upload(ctx, attachment.StorageKey, file.Data, attachment.ContentType); err != nil {
			tracing.TraceErr(span, err)
			return "", fmt.Errorf("failed to upload attachment: %w", err)
		}
		attachment.Size = len(file.Data)
	}

	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return attachment.ID, nil
}

func (r *emailAttachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailAttachmentRepository.ListByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachments []*models.EmailAttachment
	err := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Find(&attachments).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return attachments, nil
}
