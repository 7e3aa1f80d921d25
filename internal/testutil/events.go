package testutil

import (
	"context"
	"sync"

	"github.com/mailgrove/mailgrove/dto"
)

// CapturingPublisher records every published event for assertions.
type CapturingPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	UserID string
	Event  dto.ConversationUpdatedEvent
}

func NewCapturingPublisher() *CapturingPublisher {
	return &CapturingPublisher{}
}

func (p *CapturingPublisher) PublishConversationUpdated(ctx context.Context, userID string, event dto.ConversationUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{UserID: userID, Event: event})
	return nil
}

func (p *CapturingPublisher) Close() error {
	return nil
}

func (p *CapturingPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedEvent(nil), p.events...)
}
