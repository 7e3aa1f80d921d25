package dto

import (
	"time"

	"github.com/mailgrove/mailgrove/internal/models"
)

type ConversationListQuery struct {
	Folder         string `form:"folder"`
	UnreadOnly     bool   `form:"unreadOnly"`
	StarredOnly    bool   `form:"starredOnly"`
	HasAttachments bool   `form:"hasAttachments"`
	Limit          int    `form:"limit"`
	Offset         int    `form:"offset"`
}

type ConversationSearchQuery struct {
	Query  string `form:"q"`
	Folder string `form:"folder"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type ConversationSummary struct {
	ID             string                  `json:"id"`
	Subject        string                  `json:"subject"`
	Participants   []string                `json:"participants"`
	MessageCount   int                     `json:"messageCount"`
	UnreadCount    int                     `json:"unreadCount"`
	HasAttachments bool                    `json:"hasAttachments"`
	Starred        bool                    `json:"starred"`
	Folder         string                  `json:"folder"`
	LastMessageAt  *time.Time              `json:"lastMessageAt,omitempty"`
	Previews       []models.PreviewMessage `json:"previews"`
}

type ConversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	Total         int64                 `json:"total"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

type ConversationDetail struct {
	Conversation ConversationSummary `json:"conversation"`
	Emails       []EmailResponse     `json:"emails"`
}

func MapConversationToSummary(conversation *models.Conversation, previews []models.PreviewMessage) ConversationSummary {
	if previews == nil {
		previews = []models.PreviewMessage{}
	}
	return ConversationSummary{
		ID:             conversation.ID,
		Subject:        conversation.Subject,
		Participants:   conversation.Participants,
		MessageCount:   conversation.MessageCount,
		UnreadCount:    conversation.UnreadCount,
		HasAttachments: conversation.HasAttachments,
		Starred:        conversation.Starred,
		Folder:         conversation.Folder,
		LastMessageAt:  conversation.LastMessageAt,
		Previews:       previews,
	}
}
