package dto

import (
	"time"

	"github.com/mailgrove/mailgrove/internal/models"
)

type EmailResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	Subject        string    `json:"subject"`
	FromAddress    string    `json:"fromAddress"`
	ToAddresses    []string  `json:"toAddresses"`
	CcAddresses    []string  `json:"ccAddresses"`
	BodyText       string    `json:"bodyText,omitempty"`
	BodyHTML       string    `json:"bodyHtml,omitempty"`
	IsRead         bool      `json:"isRead"`
	IsStarred      bool      `json:"isStarred"`
	HasAttachment  bool      `json:"hasAttachment"`
	Folder         string    `json:"folder"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

type SendEmailRequest struct {
	ReplyToEmailID string   `json:"replyToEmailId,omitempty"`
	From           string   `json:"from" binding:"required"`
	To             []string `json:"to" binding:"required,min=1"`
	Cc             []string `json:"cc,omitempty"`
	Subject        string   `json:"subject"`
	BodyText       string   `json:"bodyText,omitempty"`
	BodyHTML       string   `json:"bodyHtml,omitempty"`
}

type UpdateFlagRequest struct {
	Value bool `json:"value"`
}

type MoveFolderRequest struct {
	Folder string `json:"folder" binding:"required"`
}

func MapEmailToResponse(email *models.Email) EmailResponse {
	return EmailResponse{
		ID:             email.ID,
		ConversationID: email.ConversationID,
		MessageID:      email.MessageID,
		Subject:        email.Subject,
		FromAddress:    email.FromAddress,
		ToAddresses:    email.ToAddresses,
		CcAddresses:    email.CcAddresses,
		BodyText:       email.BodyText,
		BodyHTML:       email.BodyHTML,
		IsRead:         email.IsRead,
		IsStarred:      email.IsStarred,
		HasAttachment:  email.HasAttachment,
		Folder:         email.Folder,
		ReceivedAt:     email.ReceivedAt,
	}
}
