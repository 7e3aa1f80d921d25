package events

import (
	"context"

	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
)

type noopPublisher struct{}

// NewNoopPublisher is used when no broker URL is configured. Writes
// still succeed, conversation events are simply not emitted.
func NewNoopPublisher() interfaces.EventsPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishConversationUpdated(ctx context.Context, userID string, event dto.ConversationUpdatedEvent) error {
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
