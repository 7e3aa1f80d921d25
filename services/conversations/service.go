package conversations

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type conversationService struct {
	log          logger.Logger
	repositories *repository.Repositories
	threading    interfaces.ThreadingService
	events       interfaces.EventsPublisher
}

func NewConversationService(
	log logger.Logger,
	repositories *repository.Repositories,
	threadingService interfaces.ThreadingService,
	events interfaces.EventsPublisher,
) interfaces.ConversationService {
	return &conversationService{
		log:          log,
		repositories: repositories,
		threading:    threadingService,
		events:       events,
	}
}

func normalizePagination(limit, offset int) (int, int, error) {
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit < 0 || limit > maxPageSize || offset < 0 {
		return 0, 0, er.ErrInvalidPagination
	}
	return limit, offset, nil
}

func (s *conversationService) List(ctx context.Context, userID string, query dto.ConversationListQuery) (*dto.ConversationListResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.List")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return nil, er.ErrUserMissing
	}

	limit, offset, err := normalizePagination(query.Limit, query.Offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Predicates run in the repository so pages stay full and Total
	// reflects the filtered set.
	filter := interfaces.ConversationFilter{
		UnreadOnly:     query.UnreadOnly,
		StarredOnly:    query.StarredOnly,
		HasAttachments: query.HasAttachments,
	}

	conversations, err := s.repositories.ConversationRepository.ListByUserAndFolder(ctx, userID, query.Folder, filter, limit, offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	total, err := s.repositories.ConversationRepository.CountByUserAndFolder(ctx, userID, query.Folder, filter)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		previews, err := s.threading.Preview(ctx, conversation.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		summaries = append(summaries, dto.MapConversationToSummary(conversation, previews))
	}

	return &dto.ConversationListResponse{
		Conversations: summaries,
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

func (s *conversationService) Get(ctx context.Context, userID, conversationID string) (*dto.ConversationDetail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.Get")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	tracing.TagConversation(span, conversationID)

	conversation, err := s.getOwned(ctx, userID, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	emails, err := s.repositories.EmailRepository.ListByConversation(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	responses := make([]dto.EmailResponse, 0, len(emails))
	for _, email := range emails {
		responses = append(responses, dto.MapEmailToResponse(email))
	}

	previews, err := s.threading.Preview(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &dto.ConversationDetail{
		Conversation: dto.MapConversationToSummary(conversation, previews),
		Emails:       responses,
	}, nil
}

func (s *conversationService) Search(ctx context.Context, userID string, query dto.ConversationSearchQuery) (*dto.ConversationListResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "conversationService.Search")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if query.Query == "" {
		return nil, er.ErrInvalidInput
	}

	limit, offset, err := normalizePagination(query.Limit, query.Offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	conversations, err := s.repositories.ConversationRepository.Search(ctx, userID, query.Query, query.Folder, limit, offset)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summaries := make([]dto.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		previews, err := s.threading.Preview(ctx, conversation.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		summaries = append(summaries, dto.MapConversationToSummary(conversation, previews))
	}

	return &dto.ConversationListResponse{
		Conversations: summaries,
		Total:         int64(len(summaries)),
		Limit:         limit,
		Offset:        offset,
	}, nil
}

// getOwned fetches a conversation and hides other users' rows behind
// not-found.
func (s *conversationService) getOwned(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if conversationID == "" {
		return nil, er.ErrInvalidInput
	}

	conversation, err := s.repositories.ConversationRepository.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil || conversation.UserID != userID {
		return nil, er.ErrConversationNotFound
	}

	return conversation, nil
}
