package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/internal/models"
)

type OrphanEmailRepository interface {
	Create(ctx context.Context, orphan *models.OrphanEmail) (string, error)
	GetByUserAndMessageID(ctx context.Context, userID, messageID string) (*models.OrphanEmail, error)
	DeleteByConversationID(ctx context.Context, conversationID string) error
}
