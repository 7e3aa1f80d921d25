package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/internal/models"
)

type QuarantineRepository interface {
	Create(ctx context.Context, quarantined *models.QuarantinedEmail) (string, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.QuarantinedEmail, error)
}
