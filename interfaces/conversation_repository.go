package interfaces

import (
	"context"
	"time"

	"github.com/mailgrove/mailgrove/internal/models"
)

// AggregateDelta is one incremental adjustment to a conversation's
// aggregate fields, applied atomically under a row lock. Zero-valued
// fields leave the corresponding column untouched.
type AggregateDelta struct {
	MessageCountDelta int
	UnreadCountDelta  int

	// SetHasAttachments overrides the has_attachments flag when non-nil.
	SetHasAttachments *bool

	// NewMessageAt advances last_message_at / first_message_at when it
	// falls outside the current range.
	NewMessageAt   *time.Time
	NewMessageID   string
	RecomputedAt   *time.Time // replaces last_message_at after a removal
	RecomputedID   string
	ForceRecompute bool

	AddParticipants []string
	Folder          string
}

// ConversationFilter narrows listing and counting to conversations
// matching every set predicate.
type ConversationFilter struct {
	UnreadOnly     bool
	StarredOnly    bool
	HasAttachments bool
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation) (string, error)

	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByUserAndThreadKey(ctx context.Context, userID, threadKey string) (*models.Conversation, error)

	// FindBySubjectAndUser returns candidate conversations with the same
	// normalized subject whose last message is newer than since, newest
	// first.
	FindBySubjectAndUser(ctx context.Context, userID, cleanSubject string, since time.Time) ([]*models.Conversation, error)

	// ListByUserAndFolder orders by last_message_at descending with id
	// ascending tie-break, for stable pagination. The filter narrows the
	// result set before limit and offset apply.
	ListByUserAndFolder(ctx context.Context, userID, folder string, filter ConversationFilter, limit, offset int) ([]*models.Conversation, error)
	CountByUserAndFolder(ctx context.Context, userID, folder string, filter ConversationFilter) (int64, error)

	// Search matches the query against conversation subject and
	// participants plus member email bodies and senders.
	Search(ctx context.Context, userID, query string, folder string, limit, offset int) ([]*models.Conversation, error)

	// ApplyAggregateDelta locks the conversation row, applies the delta
	// with unread_count clamped to [0, message_count], and returns the
	// updated row.
	ApplyAggregateDelta(ctx context.Context, conversationID string, delta AggregateDelta) (*models.Conversation, error)

	SetStarred(ctx context.Context, conversationID string, starred bool) error
	SetFolder(ctx context.Context, conversationID, folder string) error
	Delete(ctx context.Context, conversationID string) error
	DeleteByUser(ctx context.Context, userID string) error
}
