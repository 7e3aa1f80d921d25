package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/internal/models"
)

// ThreadingService is the single entry point for attaching incoming
// mail to conversations. Ingest is idempotent on (user id, message id)
// and serializes work per conversation.
type ThreadingService interface {
	Ingest(ctx context.Context, userID string, incoming *IncomingEmail) (*models.Email, error)

	// Aggregate maintenance hooks, invoked by the mutation paths. The
	// removal hook expects the member row to be gone already.
	OnMemberFlagChanged(ctx context.Context, conversationID string, before, after models.EmailFlags) (*models.Conversation, error)
	OnMemberRemoved(ctx context.Context, conversationID string, removed *models.Email) (*models.Conversation, error)

	// Preview projects the most recent members of a conversation into
	// bounded snippets. Read-only.
	Preview(ctx context.Context, conversationID string) ([]models.PreviewMessage, error)

	// LockConversation serializes multi-step mutations on one
	// conversation with the same keyed lock ingestion uses.
	LockConversation(conversationID string) func()

	// Rebuild drops and re-materializes every conversation of a user by
	// replaying their emails through the resolver.
	Rebuild(ctx context.Context, userID string) (int, error)
}
