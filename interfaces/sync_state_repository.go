package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/internal/models"
)

type SyncStateRepository interface {
	GetSyncState(ctx context.Context, userID, folderName string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	DeleteSyncState(ctx context.Context, userID, folderName string) error
}
