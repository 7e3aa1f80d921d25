package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/internal/models"
)

type ConversationService interface {
	List(ctx context.Context, userID string, query dto.ConversationListQuery) (*dto.ConversationListResponse, error)
	Get(ctx context.Context, userID, conversationID string) (*dto.ConversationDetail, error)
	Search(ctx context.Context, userID string, query dto.ConversationSearchQuery) (*dto.ConversationListResponse, error)

	SetRead(ctx context.Context, userID, conversationID string, read bool) (*models.Conversation, error)
	SetStarred(ctx context.Context, userID, conversationID string, starred bool) (*models.Conversation, error)
	MoveToFolder(ctx context.Context, userID, conversationID, folder string) (*models.Conversation, error)
	Delete(ctx context.Context, userID, conversationID string) error

	BulkAction(ctx context.Context, userID string, request dto.BulkActionRequest) (*dto.BulkActionResult, error)
}

// EmailService covers single message mutations and outbound mail.
// Flag changes flow back through the aggregate maintainer so the
// owning conversation's counters stay consistent.
type EmailService interface {
	SetRead(ctx context.Context, userID, emailID string, read bool) (*models.Email, error)
	SetStarred(ctx context.Context, userID, emailID string, starred bool) (*models.Email, error)
	MoveToFolder(ctx context.Context, userID, emailID, folder string) (*models.Email, error)
	Delete(ctx context.Context, userID, emailID string) error
	Send(ctx context.Context, userID string, request dto.SendEmailRequest) (*models.Email, error)
}
