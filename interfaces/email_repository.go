package interfaces

import (
	"context"
	"time"

	"github.com/mailgrove/mailgrove/internal/models"
)

type EmailRepository interface {
	// Create stores a new email. Duplicate (user_id, message_id) pairs
	// are absorbed: the id of the existing row is returned and no new
	// row is written.
	Create(ctx context.Context, email *models.Email) (string, error)

	GetByID(ctx context.Context, id string) (*models.Email, error)
	GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.Email, error)

	// ListByConversation returns all members ordered by received_at
	// ascending (chronological reading order).
	ListByConversation(ctx context.Context, conversationID string) ([]*models.Email, error)

	// ListRecentByConversation returns at most limit members ordered by
	// received_at descending.
	ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]*models.Email, error)

	ListByUser(ctx context.Context, userID string) ([]*models.Email, error)

	// AssignConversation repoints an email at a conversation. Used by
	// the offline rebuild path.
	AssignConversation(ctx context.Context, emailID, conversationID string) error

	// UpdateFlags persists mutable flag columns only.
	UpdateFlags(ctx context.Context, id string, updates map[string]interface{}) error

	// SetReadByConversation flips is_read on every member that does not
	// already have the target value and reports how many rows changed.
	SetReadByConversation(ctx context.Context, conversationID string, isRead bool) (int64, error)

	SetFolderByConversation(ctx context.Context, conversationID, folder string) error

	// HardDelete purges an email row. Soft deletion is a folder move to
	// Trash, not a delete.
	HardDelete(ctx context.Context, id string) error

	// MaxReceivedAtByConversation re-derives the newest member after a
	// removal. Returns nil when the conversation has no members left.
	MaxReceivedAtByConversation(ctx context.Context, conversationID string) (*time.Time, string, error)

	AnyAttachmentByConversation(ctx context.Context, conversationID string) (bool, error)

	ClearConversationID(ctx context.Context, userID string) error
}
