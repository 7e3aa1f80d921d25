package threading

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type threadingService struct {
	log          logger.Logger
	repositories *repository.Repositories
	events       interfaces.EventsPublisher

	locks *conversationLocks

	subjectMatchWindowDays int
	previewLimit           int
	snippetLength          int
}

func NewThreadingService(
	log logger.Logger,
	repositories *repository.Repositories,
	events interfaces.EventsPublisher,
	cfg *config.ThreadingConfig,
) interfaces.ThreadingService {
	return &threadingService{
		log:                    log,
		repositories:           repositories,
		events:                 events,
		locks:                  newConversationLocks(),
		subjectMatchWindowDays: cfg.SubjectMatchWindowDays,
		previewLimit:           cfg.PreviewMessageLimit,
		snippetLength:          cfg.PreviewSnippetLength,
	}
}

func (s *threadingService) LockConversation(conversationID string) func() {
	return s.locks.Lock(conversationID)
}

// Ingest files one normalized email into a conversation. The same
// (user, message-id) delivered twice returns the already-stored email.
func (s *threadingService) Ingest(ctx context.Context, userID string, incoming *interfaces.IncomingEmail) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.Ingest")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if incoming == nil {
		return nil, er.ErrInvalidInput
	}

	email, err := s.buildEmail(ctx, userID, incoming)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Fast idempotency path, before any locking
	existing, err := s.repositories.EmailRepository.GetByUserAndMessageID(ctx, userID, email.MessageID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if existing != nil {
		span.SetTag("duplicate", true)
		return existing, nil
	}

	res, err := s.resolveConversation(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	lockKey := res.ConversationID
	if lockKey == "" {
		lockKey = fmt.Sprintf("mint:%s:%s", userID, res.ThreadKey)
	}
	unlock := s.locks.Lock(lockKey)
	defer unlock()

	if res.ConversationID != "" {
		return s.attachToConversation(ctx, email, incoming, res.ConversationID)
	}
	return s.createConversation(ctx, email, incoming, res.ThreadKey)
}

// buildEmail converts the normalizer payload into a model row,
// quarantining what cannot be filed. A missing message-id alone is
// repaired with a content-derived one.
func (s *threadingService) buildEmail(ctx context.Context, userID string, incoming *interfaces.IncomingEmail) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.buildEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if incoming.FromAddress == "" {
		s.quarantine(ctx, userID, incoming, models.QuarantineReasonMalformed, "missing sender address")
		return nil, er.ErrMalformedEmail
	}

	messageID := utils.NormalizeMessageID(incoming.MessageID)
	if messageID == "" {
		seed := fmt.Sprintf("%s|%s|%s|%d", userID, incoming.FromAddress, incoming.Subject, incoming.ReceivedAt.UnixMicro())
		messageID = utils.DeriveMessageID(utils.ExtractDomainFromEmail(incoming.FromAddress), seed)
		span.SetTag("synthesized_message_id", true)
	}

	references := make([]string, 0, len(incoming.References))
	for _, ref := range incoming.References {
		if normalized := utils.NormalizeMessageID(ref); normalized != "" {
			references = append(references, normalized)
		}
	}

	folder := incoming.Folder
	if folder == "" {
		folder = models.FolderInbox
	}

	receivedAt := incoming.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = utils.Now()
	}

	return &models.Email{
		UserID:        userID,
		MessageID:     messageID,
		Folder:        folder,
		ImapUID:       incoming.UID,
		InReplyTo:     utils.NormalizeMessageID(incoming.InReplyTo),
		References:    pq.StringArray(references),
		Subject:       incoming.Subject,
		CleanSubject:  utils.NormalizeSubject(incoming.Subject),
		FromAddress:   incoming.FromAddress,
		ToAddresses:   pq.StringArray(incoming.ToAddresses),
		CcAddresses:   pq.StringArray(incoming.CcAddresses),
		ReceivedAt:    receivedAt.UTC(),
		BodyText:      incoming.BodyText,
		BodyHTML:      incoming.BodyHTML,
		HasAttachment: len(incoming.Attachments) > 0,
		IsRead:        folder == models.FolderSent,
		RawHeaders:    models.JSONMap(incoming.RawHeaders),
	}, nil
}

func (s *threadingService) attachToConversation(ctx context.Context, email *models.Email, incoming *interfaces.IncomingEmail, conversationID string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.attachToConversation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagConversation(span, conversationID)

	conversation, err := s.repositories.ConversationRepository.GetByID(ctx, conversationID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if conversation == nil {
		// Resolved id vanished underneath us; mint a fresh conversation
		return s.createConversation(ctx, email, incoming, utils.NormalizeMessageID(email.MessageID))
	}

	if conversation.UserID != email.UserID {
		s.quarantineEmail(ctx, email, models.QuarantineReasonCrossUserThread,
			fmt.Sprintf("conversation %s belongs to another user", conversation.ID))
		tracing.TraceErr(span, er.ErrCrossUserThread)
		return nil, er.ErrCrossUserThread
	}

	email.ConversationID = conversation.ID
	emailID, err := s.repositories.EmailRepository.Create(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if emailID != email.ID {
		// Lost a duplicate race; the first writer already updated counts
		return s.repositories.EmailRepository.GetByID(ctx, emailID)
	}

	if err := s.storeAttachments(ctx, email, incoming); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	updated, err := s.OnMemberAdded(ctx, conversation, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.publishConversationEvent(ctx, updated, dto.EventConversationUpdated, email.ID)

	return email, nil
}

func (s *threadingService) createConversation(ctx context.Context, email *models.Email, incoming *interfaces.IncomingEmail, threadKey string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.createConversation")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	receivedAt := email.ReceivedAt
	unreadCount := 0
	if !email.IsRead {
		unreadCount = 1
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
		// A concurrent ingest may have minted the same thread key first
		existing, lookupErr := s.repositories.ConversationRepository.GetByUserAndThreadKey(ctx, email.UserID, threadKey)
		if lookupErr == nil && existing != nil {
			return s.attachToConversation(ctx, email, incoming, existing.ID)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	email.ConversationID = conversationID
	emailID, err := s.repositories.EmailRepository.Create(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if emailID != email.ID {
		return s.repositories.EmailRepository.GetByID(ctx, emailID)
	}

	if err := s.storeAttachments(ctx, email, incoming); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := s.recordMissingParents(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	s.publishConversationEvent(ctx, conversation, dto.EventConversationCreated, email.ID)

	return email, nil
}

// recordMissingParents remembers every referenced message-id that has
// not arrived yet, so an out-of-order parent joins this conversation
// instead of minting its own.
func (s *threadingService) recordMissingParents(ctx context.Context, email *models.Email) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.recordMissingParents")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if email.InReplyTo != "" {
		if _, err := s.repositories.OrphanEmailRepository.Create(ctx, &models.OrphanEmail{
			UserID:         email.UserID,
			MessageID:      email.InReplyTo,
			ReferencedBy:   email.MessageID,
			ConversationID: email.ConversationID,
		}); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	for _, messageID := range email.References {
		if messageID == email.InReplyTo {
			continue
		}
		if _, err := s.repositories.OrphanEmailRepository.Create(ctx, &models.OrphanEmail{
			UserID:         email.UserID,
			MessageID:      messageID,
			ReferencedBy:   email.MessageID,
			ConversationID: email.ConversationID,
		}); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}

func (s *threadingService) storeAttachments(ctx context.Context, email *models.Email, incoming *interfaces.IncomingEmail) error {
	if incoming == nil || len(incoming.Attachments) == 0 {
		return nil
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "threadingService.storeAttachments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	for _, att := range incoming.Attachments {
		attachment := &models.EmailAttachment{
			EmailID:     email.ID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			ContentID:   att.ContentID,
			IsInline:    att.IsInline,
		}
		var file *interfaces.AttachmentFile
		if len(att.Data) > 0 {
			file = &interfaces.AttachmentFile{Data: att.Data}
		}
		if _, err := s.repositories.EmailAttachmentRepository.Store(ctx, attachment, file); err != nil {
			tracing.TraceErr(span, err)
			return errors.Wrap(err, "failed to store attachment")
		}
	}

	return nil
}

func (s *threadingService) quarantine(ctx context.Context, userID string, incoming *interfaces.IncomingEmail, reason, detail string) {
	payload := models.JSONMap{}
	if incoming != nil {
		payload = models.JSONMap{
			"subject":     incoming.Subject,
			"fromAddress": incoming.FromAddress,
			"inReplyTo":   incoming.InReplyTo,
			"references":  incoming.References,
			"receivedAt":  incoming.ReceivedAt,
		}
	}
	quarantined := &models.QuarantinedEmail{
		UserID:    userID,
		MessageID: utils.NormalizeMessageID(incomingMessageID(incoming)),
		Reason:    reason,
		Detail:    detail,
		Payload:   payload,
	}
	if _, err := s.repositories.QuarantineRepository.Create(ctx, quarantined); err != nil {
		s.log.Errorf("failed to quarantine email for user %s: %v", userID, err)
	}
}

func (s *threadingService) quarantineEmail(ctx context.Context, email *models.Email, reason, detail string) {
	quarantined := &models.QuarantinedEmail{
		UserID:    email.UserID,
		MessageID: email.MessageID,
		Reason:    reason,
		Detail:    detail,
		Payload: models.JSONMap{
			"subject":     email.Subject,
			"fromAddress": email.FromAddress,
			"inReplyTo":   email.InReplyTo,
			"references":  []string(email.References),
			"receivedAt":  email.ReceivedAt,
		},
	}
	if _, err := s.repositories.QuarantineRepository.Create(ctx, quarantined); err != nil {
		s.log.Errorf("failed to quarantine email %s: %v", email.MessageID, err)
	}
}

func incomingMessageID(incoming *interfaces.IncomingEmail) string {
	if incoming == nil {
		return ""
	}
	return incoming.MessageID
}

// publishConversationEvent is best effort; a notification that cannot
// be delivered never fails the write that triggered it.
func (s *threadingService) publishConversationEvent(ctx context.Context, conversation *models.Conversation, eventType, newEmailID string) {
	if s.events == nil || conversation == nil {
		return
	}

	event := dto.ConversationUpdatedEvent{
		ConversationID: conversation.ID,
		EventType:      eventType,
		Folder:         conversation.Folder,
		MessageCount:   conversation.MessageCount,
		UnreadCount:    conversation.UnreadCount,
		NewEmailID:     newEmailID,
	}
	if err := s.events.PublishConversationUpdated(ctx, conversation.UserID, event); err != nil {
		s.log.Warnf("failed to publish conversation event for %s: %v", conversation.ID, err)
	}
}
