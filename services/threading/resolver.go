package threading

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

// resolution is the outcome of running one email through the thread
// key chain. ConversationID is empty when no existing conversation
// claimed the email; ThreadKey is then the key a new conversation
// should be minted with.
type resolution struct {
	ConversationID string
	ThreadKey      string
}

// resolveConversation walks the precedence chain: orphan-parent check,
// In-Reply-To, References, subject+participant fallback. Header
// linkage always wins over the heuristic.
func (s *threadingService) resolveConversation(ctx context.Context, email *models.Email) (resolution, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.resolveConversation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, email.UserID)

	// Case 1: this email is the missing parent of an already-ingested reply
	conversationID, err := s.checkForOrphanedParentMessage(ctx, email)
	if err != nil {
		return resolution{}, err
	}
	if conversationID != "" {
		span.SetTag("resolved_by", "orphan")
		return resolution{ConversationID: conversationID}, nil
	}

	// Case 2: direct parent via In-Reply-To
	if email.InReplyTo != "" {
		conversationID, err := s.findConversationByMessageID(ctx, email.UserID, email.InReplyTo)
		if err != nil {
			tracing.TraceErr(span, err)
			return resolution{}, err
		}
		if conversationID != "" {
			span.SetTag("resolved_by", "in_reply_to")
			return resolution{ConversationID: conversationID}, nil
		}
	}

	// Case 3: any ancestor via References
	for _, messageID := range email.References {
		conversationID, err := s.findConversationByMessageID(ctx, email.UserID, messageID)
		if err != nil {
			tracing.TraceErr(span, err)
			return resolution{}, err
		}
		if conversationID != "" {
			span.SetTag("resolved_by", "references")
			return resolution{ConversationID: conversationID}, nil
		}
	}

	// Case 4: subject and participant heuristic, best effort
	conversationID, err = s.findConversationBySubjectMatch(ctx, email)
	if err == nil && conversationID != "" {
		span.SetTag("resolved_by", "subject")
		return resolution{ConversationID: conversationID}, nil
	}

	// No existing conversation: the email's own message-id becomes the
	// thread key of a new one.
	span.SetTag("resolved_by", "minted")
	return resolution{ThreadKey: utils.NormalizeMessageID(email.MessageID)}, nil
}

// checkForOrphanedParentMessage finds a conversation that is already
// waiting for this message-id. Only non-reply emails qualify; a reply
// resolves through its own references.
func (s *threadingService) checkForOrphanedParentMessage(ctx context.Context, email *models.Email) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.checkForOrphanedParentMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email.InReplyTo != "" || len(email.References) > 0 {
		return "", nil
	}

	orphan, err := s.repositories.OrphanEmailRepository.GetByUserAndMessageID(ctx, email.UserID, email.MessageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	if orphan == nil || orphan.ConversationID == "" {
		return "", nil
	}

	if err := s.repositories.OrphanEmailRepository.DeleteByConversationID(ctx, orphan.ConversationID); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	return orphan.ConversationID, nil
}

func (s *threadingService) findConversationByMessageID(ctx context.Context, userID, messageID string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.findConversationByMessageID")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("message_id", messageID)

	message, err := s.repositories.EmailRepository.GetByUserAndMessageID(ctx, userID, messageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	if message == nil {
		return "", nil
	}
	return message.ConversationID, nil
}

// findConversationBySubjectMatch joins an existing conversation only
// when the normalized subject matches, the conversation saw traffic
// inside the recency window, and at least one participant overlaps.
// Failures here never fail ingestion.
func (s *threadingService) findConversationBySubjectMatch(ctx context.Context, email *models.Email) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.findConversationBySubjectMatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	normalizedSubject := utils.NormalizeSubject(email.Subject)
	if normalizedSubject == "" {
		return "", nil
	}

	since := email.ReceivedAt.Add(-time.Duration(s.subjectMatchWindowDays) * 24 * time.Hour)

	candidates, err := s.repositories.ConversationRepository.FindBySubjectAndUser(ctx, email.UserID, normalizedSubject, since)
	if err != nil {
		tracing.TraceErr(span, err)
		span.LogKV("warning", "subject-based conversation matching failed", "error", err.Error())
		return "", nil
	}
	if len(candidates) == 0 {
		return "", nil
	}

	participants := email.AllParticipants()

	bestMatchID := ""
	highestOverlap := 0
	for _, candidate := range candidates {
		overlap := 0
		for _, participant := range participants {
			if utils.IsStringInSlice(participant, candidate.Participants) {
				overlap++
			}
		}
		if overlap > highestOverlap {
			highestOverlap = overlap
			bestMatchID = candidate.ID
		}
	}

	if highestOverlap > 0 {
		return bestMatchID, nil
	}

	return "", nil
}
