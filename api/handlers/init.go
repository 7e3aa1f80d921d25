package handlers

import (
	"github.com/mailgrove/mailgrove/api/handlers/conversations"
	"github.com/mailgrove/mailgrove/api/handlers/emails"
	"github.com/mailgrove/mailgrove/services"
)

type Handlers struct {
	Conversations *conversations.ConversationsHandler
	Emails        *emails.EmailsHandler
}

func InitHandlers(s *services.Services) *Handlers {
	return &Handlers{
		Conversations: conversations.NewConversationsHandler(s.ConversationService),
		Emails:        emails.NewEmailsHandler(s.EmailService),
	}
}
