package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/logger"
	"github.com/mailgrove/mailgrove/internal/models"
	"github.com/mailgrove/mailgrove/internal/repository"
	"github.com/mailgrove/mailgrove/internal/testutil"
	"github.com/mailgrove/mailgrove/services/threading"
)

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// stubSource replays canned batches keyed by folder, honoring sinceUID
// the way a real IMAP fetch does.
type stubSource struct {
	batches map[string][]*interfaces.IncomingEmail
	calls   int
}

func (s *stubSource) FetchNew(ctx context.Context, account interfaces.MailAccount, folder string, sinceUID uint32) ([]*interfaces.IncomingEmail, error) {
	s.calls++
	var out []*interfaces.IncomingEmail
	for _, email := range s.batches[folder] {
		if email.UID > sinceUID {
			out = append(out, email)
		}
	}
	return out, nil
}

func newSyncFixture(t *testing.T, source interfaces.EmailSource, accountsFile string) (interfaces.SyncService, *repository.Repositories) {
	t.Helper()

	log := getLogger()
	repos := testutil.NewRepositories()
	threadingService := threading.NewThreadingService(log, repos, testutil.NewCapturingPublisher(), &config.ThreadingConfig{
		SubjectMatchWindowDays: 7,
		PreviewMessageLimit:    3,
		PreviewSnippetLength:   200,
	})
	svc := NewSyncService(log, repos, source, threadingService, &config.SyncConfig{
		AccountsFile: accountsFile,
		SendDomain:   "example.com",
	})
	return svc, repos
}

func testAccount() interfaces.MailAccount {
	return interfaces.MailAccount{
		UserID:     "user-1",
		Email:      "me@example.com",
		ImapServer: "imap.example.com",
		ImapPort:   993,
	}
}

func TestSyncAccount_AdvancesHighWaterMark(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	source := &stubSource{batches: map[string][]*interfaces.IncomingEmail{
		models.FolderInbox: {
			{UID: 5, MessageID: "<m5@example.com>", Subject: "One", FromAddress: "alice@example.com", ReceivedAt: now},
			{UID: 7, MessageID: "<m7@example.com>", Subject: "Two", FromAddress: "bob@example.com", ReceivedAt: now.Add(time.Minute)},
		},
	}}
	svc, repos := newSyncFixture(t, source, "")
	ctx := context.Background()

	require.NoError(t, svc.SyncAccount(ctx, testAccount()))

	state, err := repos.SyncStateRepository.GetSyncState(ctx, "user-1", models.FolderInbox)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint32(7), state.LastUID)
	assert.False(t, state.LastSync.IsZero())

	emails, err := repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 2)

	// A second sweep starts past the saved UID and fetches nothing new
	require.NoError(t, svc.SyncAccount(ctx, testAccount()))
	emails, err = repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 2)
}

func TestSyncAccount_QuarantinedMailStillAdvances(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	source := &stubSource{batches: map[string][]*interfaces.IncomingEmail{
		models.FolderInbox: {
			// No sender: quarantined on ingest
			{UID: 3, MessageID: "<broken@example.com>", Subject: "broken", ReceivedAt: now},
			{UID: 4, MessageID: "<ok@example.com>", Subject: "fine", FromAddress: "alice@example.com", ReceivedAt: now},
		},
	}}
	svc, repos := newSyncFixture(t, source, "")
	ctx := context.Background()

	require.NoError(t, svc.SyncAccount(ctx, testAccount()))

	state, err := repos.SyncStateRepository.GetSyncState(ctx, "user-1", models.FolderInbox)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint32(4), state.LastUID)

	quarantined, err := repos.QuarantineRepository.ListByUser(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)

	emails, err := repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 1)
}

// faultyThreading fails Ingest once for a chosen message id, standing in
// for a database hiccup mid-sweep.
type faultyThreading struct {
	interfaces.ThreadingService
	failOn string
	failed bool
}

func (f *faultyThreading) Ingest(ctx context.Context, userID string, incoming *interfaces.IncomingEmail) (*models.Email, error) {
	if !f.failed && incoming.MessageID == f.failOn {
		f.failed = true
		return nil, errors.New("connection reset")
	}
	return f.ThreadingService.Ingest(ctx, userID, incoming)
}

func TestSyncAccount_TransientIngestErrorHaltsSweep(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	source := &stubSource{batches: map[string][]*interfaces.IncomingEmail{
		models.FolderInbox: {
			{UID: 2, MessageID: "<m2@example.com>", Subject: "One", FromAddress: "alice@example.com", ReceivedAt: now},
			{UID: 3, MessageID: "<m3@example.com>", Subject: "Two", FromAddress: "bob@example.com", ReceivedAt: now},
			{UID: 4, MessageID: "<m4@example.com>", Subject: "Three", FromAddress: "carol@example.com", ReceivedAt: now},
		},
	}}

	log := getLogger()
	repos := testutil.NewRepositories()
	threadingService := threading.NewThreadingService(log, repos, testutil.NewCapturingPublisher(), &config.ThreadingConfig{
		SubjectMatchWindowDays: 7,
		PreviewMessageLimit:    3,
		PreviewSnippetLength:   200,
	})
	flaky := &faultyThreading{ThreadingService: threadingService, failOn: "<m3@example.com>"}
	svc := NewSyncService(log, repos, source, flaky, &config.SyncConfig{SendDomain: "example.com"})
	ctx := context.Background()

	require.NoError(t, svc.SyncAccount(ctx, testAccount()))

	// The sweep stops at the last UID that actually made it in, so the
	// failed message and everything after it stay unfetched rather than
	// being skipped forever.
	state, err := repos.SyncStateRepository.GetSyncState(ctx, "user-1", models.FolderInbox)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, uint32(2), state.LastUID)

	emails, err := repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 1)

	// Next sweep retries from UID 2 and picks up the rest
	require.NoError(t, svc.SyncAccount(ctx, testAccount()))

	state, err = repos.SyncStateRepository.GetSyncState(ctx, "user-1", models.FolderInbox)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), state.LastUID)

	emails, err = repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 3)
}

func TestSyncAccount_RequiresUser(t *testing.T) {
	svc, _ := newSyncFixture(t, &stubSource{}, "")
	err := svc.SyncAccount(context.Background(), interfaces.MailAccount{Email: "me@example.com"})
	assert.Error(t, err)
}

func TestSyncAccount_DefaultsToInbox(t *testing.T) {
	source := &stubSource{batches: map[string][]*interfaces.IncomingEmail{}}
	svc, _ := newSyncFixture(t, source, "")

	require.NoError(t, svc.SyncAccount(context.Background(), testAccount()))
	assert.Equal(t, 1, source.calls)
}

func TestSyncAll(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	source := &stubSource{batches: map[string][]*interfaces.IncomingEmail{
		models.FolderInbox: {
			{UID: 1, MessageID: "<m1@example.com>", Subject: "Hi", FromAddress: "alice@example.com", ReceivedAt: now},
		},
	}}

	accounts := `[{"userId":"user-1","email":"me@example.com","imapServer":"imap.example.com","imapPort":993}]`
	accountsFile := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(accountsFile, []byte(accounts), 0o600))

	svc, repos := newSyncFixture(t, source, accountsFile)
	ctx := context.Background()

	require.NoError(t, svc.SyncAll(ctx))

	emails, err := repos.EmailRepository.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, emails, 1)
}

func TestSyncAll_NoAccountsFileConfigured(t *testing.T) {
	svc, _ := newSyncFixture(t, &stubSource{}, "")
	assert.NoError(t, svc.SyncAll(context.Background()))
}
