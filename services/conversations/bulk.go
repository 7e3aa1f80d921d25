package conversations

import (
	"context"
	"sort"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// BulkAction applies one action across many conversations. Each
// conversation commits or fails on its own; one failure never rolls
// back siblings. IDs are processed in sorted order so two overlapping
// bulk requests acquire locks the same way and cannot deadlock.
func (s *conversationService) BulkAction(ctx context.Context, userID string, request dto.BulkActionRequest) (*dto.BulkActionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.BulkAction")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	span.SetTag("action", request.Action)
	span.SetTag("count", len(request.ConversationIDs))

	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if len(request.ConversationIDs) == 0 {
		return nil, er.ErrInvalidInput
	}

	switch request.Action {
	case dto.BulkActionMarkRead, dto.BulkActionMarkUnread, dto.BulkActionDelete:
	case dto.BulkActionMove:
		if request.Folder == "" {
			return nil, er.ErrUnknownFolder
		}
	default:
		tracing.TraceErr(span, er.ErrUnknownBulkAction)
		return nil, er.ErrUnknownBulkAction
	}

	ids := append([]string{}, request.ConversationIDs...)
	sort.Strings(ids)

	result := &dto.BulkActionResult{
		Action:   request.Action,
		Outcomes: make([]dto.BulkActionOutcome, 0, len(ids)),
	}

	for _, conversationID := range ids {
		// A cancelled request stops between conversations, never inside one
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := s.applyOne(ctx, userID, conversationID, request)
		outcome := dto.BulkActionOutcome{
			ConversationID: conversationID,
			Success:        err == nil,
		}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}

func (s *conversationService) applyOne(ctx context.Context, userID, conversationID string, request dto.BulkActionRequest) error {
	switch request.Action {
	case dto.BulkActionMarkRead:
		_, err := s.SetRead(ctx, userID, conversationID, true)
		return err
	case dto.BulkActionMarkUnread:
		_, err := s.SetRead(ctx, userID, conversationID, false)
		return err
	case dto.BulkActionMove:
		_, err := s.MoveToFolder(ctx, userID, conversationID, request.Folder)
		return err
	case dto.BulkActionDelete:
		return s.Delete(ctx, userID, conversationID)
	default:
		return er.ErrUnknownBulkAction
	}
}
