package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type syncService struct {
	log          logger.Logger
	repositories *repository.Repositories
	source       interfaces.EmailSource
	threading    interfaces.ThreadingService
	accountsFile string
}

func NewSyncService(
	log logger.Logger,
	repositories *repository.Repositories,
	source interfaces.EmailSource,
	threadingService interfaces.ThreadingService,
	cfg *config.SyncConfig,
) interfaces.SyncService {
	return &syncService{
		log:          log,
		repositories: repositories,
		source:       source,
		threading:    threadingService,
		accountsFile: cfg.AccountsFile,
	}
}

func (s *syncService) SyncAll(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncAll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	accounts, err := s.loadAccounts()
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	span.LogKV("accounts.count", len(accounts))

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.SyncAccount(ctx, account); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("sync failed for account %s: %v", account.Email, err)
		}
	}
	return nil
}

func (s *syncService) SyncAccount(ctx context.Context, account interfaces.MailAccount) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncAccount")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("user.id", account.UserID)

	if account.UserID == "" {
		return errors.New("account has no user id")
	}

	folders := account.Folders
	if len(folders) == 0 {
		folders = []string{models.FolderInbox}
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncFolder(ctx, account, folder); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("sync failed for %s folder %s: %v", account.Email, folder, err)
		}
	}
	return nil
}

func (s *syncService) syncFolder(ctx context.Context, account interfaces.MailAccount, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.syncFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("user.id", account.UserID)
	span.SetTag("folder", folder)

	state, err := s.repositories.SyncStateRepository.GetSyncState(ctx, account.UserID, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if state == nil {
		state = &models.SyncState{
			UserID:     account.UserID,
			FolderName: folder,
		}
	}

	emails, err := s.source.FetchNew(ctx, account, folder, state.LastUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if len(emails) == 0 {
		return nil
	}
	span.LogKV("fetched.count", len(emails))

	highestUID := state.LastUID
	for _, incoming := range emails {
		if err := ctx.Err(); err != nil {
			// Persist progress so the next sweep resumes here.
			s.saveProgress(ctx, state, highestUID)
			return err
		}

		if _, err := s.threading.Ingest(ctx, account.UserID, incoming); err != nil {
			// Quarantined mail still advances the high-water mark, a
			// retried UID would quarantine the same way again. Anything
			// else is treated as transient: stop the sweep at the last
			// good UID so the mail is fetched again next time.
			if !errors.Is(err, er.ErrMalformedEmail) && !errors.Is(err, er.ErrCrossUserThread) {
				tracing.TraceErr(span, err)
				s.saveProgress(ctx, state, highestUID)
				return errors.Wrapf(err, "ingest failed for %s uid=%d", account.Email, incoming.UID)
			}
			tracing.TraceErr(span, err)
			s.log.Errorf("ingest quarantined mail for %s uid=%d: %v", account.Email, incoming.UID, err)
		}
		if incoming.UID > highestUID {
			highestUID = incoming.UID
		}
	}

	s.saveProgress(ctx, state, highestUID)
	return nil
}

func (s *syncService) saveProgress(ctx context.Context, state *models.SyncState, highestUID uint32) {
	if highestUID <= state.LastUID {
		return
	}
	state.LastUID = highestUID
	state.LastSync = utils.Now()
	if err := s.repositories.SyncStateRepository.SaveSyncState(ctx, state); err != nil {
		s.log.Errorf("failed to save sync state for %s/%s: %v", state.UserID, state.FolderName, err)
	}
}

func (s *syncService) loadAccounts() ([]interfaces.MailAccount, error) {
	if s.accountsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.accountsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	var accounts []interfaces.MailAccount
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	return accounts, nil
}
