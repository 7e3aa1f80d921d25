package interfaces

import (
	"context"

	"github.com/mailgrove/mailgrove/dto"
)

// EventsPublisher fans conversation change notifications out to
// interested consumers, keyed by user so each client only receives
// its own updates.
type EventsPublisher interface {
	PublishConversationUpdated(ctx context.Context, userID string, event dto.ConversationUpdatedEvent) error
	Close() error
}
