package conversations

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// SetRead marks every member read or unread and snaps unread_count to
// match, in one conversation-locked step.
func (s *conversationService) SetRead(ctx context.Context, userID, conversationID string, read bool) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.SetRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	tracing.TagConversation(span, conversationID)

	conversation, err := s.getOwned(ctx, userID, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	unlock := s.threading.LockConversation(conversationID)
	defer unlock()

	changed, err := s.repositories.EmailRepository.SetReadByConversation(ctx, conversationID, read)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if changed == 0 {
		return conversation, nil
	}

	delta := interfaces.AggregateDelta{}
	if read {
		delta.UnreadCountDelta = -int(changed)
	} else {
		delta.UnreadCountDelta = int(changed)
	}

	updated, err := s.repositories.ConversationRepository.ApplyAggregateDelta(ctx, conversationID, delta)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.publishEvent(ctx, updated, dto.EventConversationUpdated)
	return updated, nil
}

func (s *conversationService) SetStarred(ctx context.Context, userID, conversationID string, starred bool) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.SetStarred")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	tracing.TagConversation(span, conversationID)

	if _, err := s.getOwned(ctx, userID, conversationID); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.repositories.ConversationRepository.SetStarred(ctx, conversationID, starred); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	updated, err := s.repositories.ConversationRepository.GetByID(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.publishEvent(ctx, updated, dto.EventConversationUpdated)
	return updated, nil
}

func (s *conversationService) MoveToFolder(ctx context.Context, userID, conversationID, folder string) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.MoveToFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	tracing.TagConversation(span, conversationID)
	span.SetTag("folder", folder)

	if folder == "" {
		return nil, er.ErrUnknownFolder
	}

	if _, err := s.getOwned(ctx, userID, conversationID); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	unlock := s.threading.LockConversation(conversationID)
	defer unlock()

	if err := s.repositories.EmailRepository.SetFolderByConversation(ctx, conversationID, folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := s.repositories.ConversationRepository.SetFolder(ctx, conversationID, folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	updated, err := s.repositories.ConversationRepository.GetByID(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.publishEvent(ctx, updated, dto.EventConversationUpdated)
	return updated, nil
}

// Delete moves the conversation to Trash; deleting a conversation that
// is already in Trash purges it and its members for good.
func (s *conversationService) Delete(ctx context.Context, userID, conversationID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	tracing.TagConversation(span, conversationID)

	conversation, err := s.getOwned(ctx, userID, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if conversation.Folder != models.FolderTrash {
		_, err := s.MoveToFolder(ctx, userID, conversationID, models.FolderTrash)
		return err
	}

	unlock := s.threading.LockConversation(conversationID)
	defer unlock()

	emails, err := s.repositories.EmailRepository.ListByConversation(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	for _, email := range emails {
		if err := s.repositories.EmailRepository.HardDelete(ctx, email.ID); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	if err := s.repositories.OrphanEmailRepository.DeleteByConversationID(ctx, conversationID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := s.repositories.ConversationRepository.Delete(ctx, conversationID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.publishEvent(ctx, conversation, dto.EventConversationDeleted)
	return nil
}

func (s *conversationService) publishEvent(ctx context.Context, conversation *models.Conversation, eventType string) {
	if s.events == nil || conversation == nil {
		return
	}

	event := dto.ConversationUpdatedEvent{
		ConversationID: conversation.ID,
		EventType:      eventType,
		Folder:         conversation.Folder,
		MessageCount:   conversation.MessageCount,
		UnreadCount:    conversation.UnreadCount,
	}
	if err := s.events.PublishConversationUpdated(ctx, conversation.UserID, event); err != nil {
		s.log.Warnf("failed to publish conversation event for %s: %v", conversation.ID, err)
	}
}
