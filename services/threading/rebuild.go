package threading

import (
	"context"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

// Rebuild wipes a user's conversations and replays their stored emails
// through the resolver in arrival order. Returns how many emails were
// refiled. Meant for offline recovery, not the request path.
func (s *threadingService) Rebuild(ctx context.Context, userID string) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.Rebuild")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return 0, er.ErrUserMissing
	}

	emails, err := s.repositories.EmailRepository.ListByUser(ctx, userID)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	if err := s.repositories.ConversationRepository.DeleteByUser(ctx, userID); err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	if err := s.repositories.EmailRepository.ClearConversationID(ctx, userID); err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	refiled := 0
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return refiled, err
		}

		email.ConversationID = ""
		if err := s.refile(ctx, email); err != nil {
			s.log.Errorf("rebuild: failed to refile email %s: %v", email.ID, err)
			continue
		}
		refiled++
	}

	span.SetTag("refiled", refiled)
	return refiled, nil
}

func (s *threadingService) refile(ctx context.Context, email *models.Email) error {
	res, err := s.resolveConversation(ctx, email)
	if err != nil {
		return err
	}

	if res.ConversationID != "" {
		conversation, err := s.repositories.ConversationRepository.GetByID(ctx, res.ConversationID)
		if err != nil {
			return err
		}
		if conversation != nil {
			if err := s.repositories.EmailRepository.AssignConversation(ctx, email.ID, conversation.ID); err != nil {
				return err
			}
			email.ConversationID = conversation.ID
			_, err = s.OnMemberAdded(ctx, conversation, email)
			return err
		}
	}

	receivedAt := email.ReceivedAt
	unreadCount := 0
	if !email.IsRead {
		unreadCount = 1
	}

	threadKey := res.ThreadKey
	if threadKey == "" {
		threadKey = utils.NormalizeMessageID(email.MessageID)
	}

	conversation := &models.Conversation{
		UserID:         email.UserID,
		ThreadKey:      threadKey,
		Subject:        email.Subject,
		CleanSubject:   email.CleanSubject,
		Participants:   pq.StringArray(email.AllParticipants()),
		Folder:         email.Folder,
		MessageCount:   1,
		UnreadCount:    unreadCount,
		HasAttachments: email.HasAttachment,
		LastMessageID:  email.MessageID,
		LastMessageAt:  &receivedAt,
		FirstMessageAt: &receivedAt,
	}
	conversationID, err := s.repositories.ConversationRepository.Create(ctx, conversation)
	if err != nil {
		return err
	}

	if err := s.repositories.EmailRepository.AssignConversation(ctx, email.ID, conversationID); err != nil {
		return err
	}
	email.ConversationID = conversationID

	return s.recordMissingParents(ctx, email)
}
