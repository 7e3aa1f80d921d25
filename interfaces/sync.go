package interfaces

import (
	"context"
)

// SyncService sweeps configured mail accounts and feeds new messages
// into the threading pipeline.
type SyncService interface {
	SyncAll(ctx context.Context) error
	SyncAccount(ctx context.Context, account MailAccount) error
}
