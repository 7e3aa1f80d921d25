package email

import (
	"context"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

var (
	ErrRecipientsMissing = errors.New("recipients missing")
	ErrInvalidEmail      = errors.New("email address is invalid")
	ErrEmptyEmailBody    = errors.New("empty email body")
)

type emailService struct {
	log          logger.Logger
	repositories *repository.Repositories
	threading    interfaces.ThreadingService
	sendDomain   string
}

func NewEmailService(
	log logger.Logger,
	repositories *repository.Repositories,
	threadingService interfaces.ThreadingService,
	syncConfig *config.SyncConfig,
) interfaces.EmailService {
	return &emailService{
		log:          log,
		repositories: repositories,
		threading:    threadingService,
		sendDomain:   syncConfig.SendDomain,
	}
}

func ValidateEmailAddress(address string) (string, error) {
	validate := mailvalidate.ValidateEmailSyntax(address)
	if !validate.IsValid {
		return "", ErrInvalidEmail
	}
	return validate.CleanEmail, nil
}

// getOwned hides other users' emails behind not-found.
func (s *emailService) getOwned(ctx context.Context, userID, emailID string) (*models.Email, error) {
	if userID == "" {
		return nil, er.ErrUserMissing
	}
	if emailID == "" {
		return nil, er.ErrInvalidInput
	}

	email, err := s.repositories.EmailRepository.GetByID(ctx, emailID)
	if err != nil {
		return nil, err
	}
	if email == nil || email.UserID != userID {
		return nil, er.ErrEmailNotFound
	}

	return email, nil
}

func (s *emailService) SetRead(ctx context.Context, userID, emailID string, read bool) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailService.SetRead")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	email, err := s.getOwned(ctx, userID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	unlock := s.threading.LockConversation(email.ConversationID)
	defer unlock()

	// Re-read under the lock; a concurrent flip of the same member must
	// not be double-counted against unread_count.
	email, err = s.getOwned(ctx, userID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if email.IsRead == read {
		return email, nil
	}

	before := email.Flags()
	if err := s.repositories.EmailRepository.UpdateFlags(ctx, email.ID, map[string]interface{}{"is_read": read}); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	email.IsRead = read

	if _, err := s.threading.OnMemberFlagChanged(ctx, email.ConversationID, before, email.Flags()); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return email, nil
}

func (s *emailService) SetStarred(ctx context.Context, userID, emailID string, starred bool) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailService.SetStarred")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	email, err := s.getOwned(ctx, userID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if email.IsStarred == starred {
		return email, nil
	}

	if err := s.repositories.EmailRepository.UpdateFlags(ctx, email.ID, map[string]interface{}{"is_starred": starred}); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	email.IsStarred = starred

	return email, nil
}

// MoveToFolder refiles a single member. The conversation's own folder
// is untouched; only conversation-level moves refile the aggregate.
func (s *emailService) MoveToFolder(ctx context.Context, userID, emailID, folder string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailService.MoveToFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)
	span.SetTag("folder", folder)

	if folder == "" {
		return nil, er.ErrUnknownFolder
	}

	email, err := s.getOwned(ctx, userID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	unlock := s.threading.LockConversation(email.ConversationID)
	defer unlock()

	if email.Folder == folder {
		return email, nil
	}

	if err := s.repositories.EmailRepository.UpdateFlags(ctx, email.ID, map[string]interface{}{"folder": folder}); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	email.Folder = folder

	return email, nil
}

// Delete moves an email to Trash; deleting from Trash purges the row
// and re-derives the owning conversation's aggregates.
func (s *emailService) Delete(ctx context.Context, userID, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailService.Delete")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagUserID(span, userID)

	email, err := s.getOwned(ctx, userID, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	unlock := s.threading.LockConversation(email.ConversationID)
	defer unlock()

	if email.Folder != models.FolderTrash {
		if err := s.repositories.EmailRepository.UpdateFlags(ctx, email.ID, map[string]interface{}{"folder": models.FolderTrash}); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		return nil
	}

	if err := s.repositories.EmailRepository.HardDelete(ctx, email.ID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if _, err := s.threading.OnMemberRemoved(ctx, email.ConversationID, email); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
