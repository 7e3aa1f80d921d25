package dto

// Event kinds published on the conversation exchange.
const (
	EventConversationCreated = "conversation.created"
	EventConversationUpdated = "conversation.updated"
	EventConversationDeleted = "conversation.deleted"
)

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	EntityID  string      `json:"entityId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceID string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// ConversationUpdatedEvent is the payload carried on conversation
// change notifications. NewEmailID is set only when the change was an
// ingested message.
type ConversationUpdatedEvent struct {
	ConversationID string `json:"conversationId"`
	EventType      string `json:"eventType"`
	Folder         string `json:"folder,omitempty"`
	MessageCount   int    `json:"messageCount"`
	UnreadCount    int    `json:"unreadCount"`
	NewEmailID     string `json:"newEmailId,omitempty"`
}
