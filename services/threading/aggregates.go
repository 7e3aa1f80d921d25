package threading

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// OnMemberAdded folds a newly attached email into the conversation's
// aggregates. An inbound message resurfaces a conversation that was
// filed away.
func (s *threadingService) OnMemberAdded(ctx context.Context, conversation *models.Conversation, email *models.Email) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.OnMemberAdded")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagConversation(span, conversation.ID)

	receivedAt := email.ReceivedAt

	delta := interfaces.AggregateDelta{
		MessageCountDelta: 1,
		NewMessageAt:      &receivedAt,
		NewMessageID:      email.MessageID,
		AddParticipants:   email.AllParticipants(),
	}
	if !email.IsRead {
		delta.UnreadCountDelta = 1
	}
	if email.HasAttachment {
		hasAttachments := true
		delta.SetHasAttachments = &hasAttachments
	}
	if email.Folder == models.FolderInbox && conversation.Folder != models.FolderInbox {
		delta.Folder = models.FolderInbox
	}

	updated, err := s.repositories.ConversationRepository.ApplyAggregateDelta(ctx, conversation.ID, delta)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return updated, nil
}

// OnMemberFlagChanged adjusts unread_count when a member's read flag
// flipped. Star and folder changes on a single member leave the
// conversation aggregates alone.
func (s *threadingService) OnMemberFlagChanged(ctx context.Context, conversationID string, before, after models.EmailFlags) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.OnMemberFlagChanged")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagConversation(span, conversationID)

	if before.IsRead == after.IsRead {
		return s.repositories.ConversationRepository.GetByID(ctx, conversationID)
	}

	delta := interfaces.AggregateDelta{}
	if after.IsRead {
		delta.UnreadCountDelta = -1
	} else {
		delta.UnreadCountDelta = 1
	}

	updated, err := s.repositories.ConversationRepository.ApplyAggregateDelta(ctx, conversationID, delta)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return updated, nil
}

// OnMemberRemoved re-derives the aggregates the removed member may
// have carried: the attachment flag when it had one, and the last
// message pointer when it was the newest. The conversation itself is
// deleted once its final member is purged.
func (s *threadingService) OnMemberRemoved(ctx context.Context, conversationID string, removed *models.Email) (*models.Conversation, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.OnMemberRemoved")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagConversation(span, conversationID)

	maxReceivedAt, maxMessageID, err := s.repositories.EmailRepository.MaxReceivedAtByConversation(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if maxReceivedAt == nil {
		// Last member gone
		if err := s.repositories.OrphanEmailRepository.DeleteByConversationID(ctx, conversationID); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if err := s.repositories.ConversationRepository.Delete(ctx, conversationID); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return nil, nil
	}

	delta := interfaces.AggregateDelta{
		MessageCountDelta: -1,
		ForceRecompute:    true,
		RecomputedAt:      maxReceivedAt,
		RecomputedID:      maxMessageID,
	}
	if !removed.IsRead {
		delta.UnreadCountDelta = -1
	}
	if removed.HasAttachment {
		anyLeft, err := s.repositories.EmailRepository.AnyAttachmentByConversation(ctx, conversationID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		delta.SetHasAttachments = &anyLeft
	}

	updated, err := s.repositories.ConversationRepository.ApplyAggregateDelta(ctx, conversationID, delta)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return updated, nil
}
