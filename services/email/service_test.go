package email

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/dto"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
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

type fixture struct {
	svc       interfaces.EmailService
	threading interfaces.ThreadingService
	repos     *repository.Repositories
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := getLogger()
	repos := testutil.NewRepositories()
	publisher := testutil.NewCapturingPublisher()
	threadingService := threading.NewThreadingService(log, repos, publisher, &config.ThreadingConfig{
		SubjectMatchWindowDays: 7,
		PreviewMessageLimit:    3,
		PreviewSnippetLength:   200,
	})
	return &fixture{
		svc:       NewEmailService(log, repos, threadingService, &config.SyncConfig{SendDomain: "example.com"}),
		threading: threadingService,
		repos:     repos,
	}
}

func (f *fixture) ingest(t *testing.T, userID, messageID, subject string, receivedAt time.Time) *models.Email {
	t.Helper()
	email, err := f.threading.Ingest(context.Background(), userID, &interfaces.IncomingEmail{
		MessageID:   messageID,
		Subject:     subject,
		FromAddress: "alice@example.com",
		ToAddresses: []string{"me@example.com"},
		BodyText:    "hello",
		ReceivedAt:  receivedAt,
	})
	require.NoError(t, err)
	return email
}

func TestSetRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	updated, err := f.svc.SetRead(ctx, "user-1", email.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsRead)

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 0, conversation.UnreadCount)

	// Re-marking is a no-op, the counter does not drift
	_, err = f.svc.SetRead(ctx, "user-1", email.ID, true)
	require.NoError(t, err)
	conversation, err = f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 0, conversation.UnreadCount)

	back, err := f.svc.SetRead(ctx, "user-1", email.ID, false)
	require.NoError(t, err)
	assert.False(t, back.IsRead)
	conversation, err = f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, conversation.UnreadCount)
}

// slowEmailRepository stretches the read-then-write window the way a
// database round-trip does.
type slowEmailRepository struct {
	interfaces.EmailRepository
}

func (r *slowEmailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	time.Sleep(5 * time.Millisecond)
	return r.EmailRepository.GetByID(ctx, id)
}

func TestSetRead_ConcurrentCallersCountOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	root := f.ingest(t, "user-1", "<root@example.com>", "Budget", now)
	_, err := f.threading.Ingest(ctx, "user-1", &interfaces.IncomingEmail{
		MessageID:   "<reply@example.com>",
		InReplyTo:   "<root@example.com>",
		Subject:     "Re: Budget",
		FromAddress: "bob@example.com",
		ReceivedAt:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	f.repos.EmailRepository = &slowEmailRepository{EmailRepository: f.repos.EmailRepository}

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SetRead(ctx, "user-1", root.ID, true)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}

	// Only one caller may decrement; the reply is still unread
	conversation, err := f.repos.ConversationRepository.GetByID(ctx, root.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, conversation.UnreadCount)
	assert.Equal(t, 2, conversation.MessageCount)
}

func TestSetRead_HidesForeignEmails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	_, err := f.svc.SetRead(ctx, "user-2", email.ID, true)
	assert.ErrorIs(t, err, er.ErrEmailNotFound)

	_, err = f.svc.SetRead(ctx, "user-1", "email_missing", true)
	assert.ErrorIs(t, err, er.ErrEmailNotFound)
}

func TestSetStarred(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	updated, err := f.svc.SetStarred(ctx, "user-1", email.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsStarred)

	// Starring a member never touches conversation aggregates
	conversation, err := f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, conversation.UnreadCount)
	assert.False(t, conversation.Starred)
}

func TestMoveToFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	_, err := f.svc.MoveToFolder(ctx, "user-1", email.ID, "")
	assert.ErrorIs(t, err, er.ErrUnknownFolder)

	moved, err := f.svc.MoveToFolder(ctx, "user-1", email.ID, models.FolderArchive)
	require.NoError(t, err)
	assert.Equal(t, models.FolderArchive, moved.Folder)

	stored, err := f.repos.EmailRepository.GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FolderArchive, stored.Folder)

	// Moving one member leaves the conversation where it was
	conversation, err := f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, models.FolderInbox, conversation.Folder)
	assert.Equal(t, 1, conversation.UnreadCount)

	_, err = f.svc.MoveToFolder(ctx, "user-2", email.ID, models.FolderArchive)
	assert.ErrorIs(t, err, er.ErrEmailNotFound)
}

func TestDelete_TrashThenPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	root := f.ingest(t, "user-1", "<root@example.com>", "Budget", now)
	reply, err := f.threading.Ingest(ctx, "user-1", &interfaces.IncomingEmail{
		MessageID:   "<reply@example.com>",
		InReplyTo:   "<root@example.com>",
		Subject:     "Re: Budget",
		FromAddress: "bob@example.com",
		ReceivedAt:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	// First delete files the member into Trash
	require.NoError(t, f.svc.Delete(ctx, "user-1", reply.ID))
	moved, err := f.repos.EmailRepository.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, models.FolderTrash, moved.Folder)

	// Second delete purges and rolls the aggregates back
	require.NoError(t, f.svc.Delete(ctx, "user-1", reply.ID))
	gone, err := f.repos.EmailRepository.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, root.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conversation)
	assert.Equal(t, 1, conversation.MessageCount)
	assert.Equal(t, "root@example.com", conversation.LastMessageID)
}

func TestDelete_LastMemberRemovesConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	email := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	require.NoError(t, f.svc.Delete(ctx, "user-1", email.ID))
	require.NoError(t, f.svc.Delete(ctx, "user-1", email.ID))

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, email.ConversationID)
	require.NoError(t, err)
	assert.Nil(t, conversation)
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.Send(ctx, "user-1", dto.SendEmailRequest{
		From:     "me@example.com",
		To:       []string{"alice@example.com"},
		Subject:  "Budget",
		BodyText: "numbers attached",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FolderSent, sent.Folder)
	assert.True(t, sent.IsRead)
	assert.NotEmpty(t, sent.MessageID)
	assert.NotEmpty(t, sent.ConversationID)

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, sent.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 0, conversation.UnreadCount)
}

func TestSend_ReplyJoinsParentConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.ingest(t, "user-1", "<root@example.com>", "Budget", time.Now())

	sent, err := f.svc.Send(ctx, "user-1", dto.SendEmailRequest{
		ReplyToEmailID: parent.ID,
		From:           "me@example.com",
		To:             []string{"alice@example.com"},
		BodyText:       "looks good",
	})
	require.NoError(t, err)
	assert.Equal(t, parent.ConversationID, sent.ConversationID)
	assert.Equal(t, "Re: Budget", sent.Subject)
	assert.Equal(t, "root@example.com", sent.InReplyTo)

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, parent.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 2, conversation.MessageCount)
}

func TestSend_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "", dto.SendEmailRequest{To: []string{"a@example.com"}, BodyText: "x"})
	assert.ErrorIs(t, err, er.ErrUserMissing)

	_, err = f.svc.Send(ctx, "user-1", dto.SendEmailRequest{From: "me@example.com", BodyText: "x"})
	assert.ErrorIs(t, err, ErrRecipientsMissing)

	_, err = f.svc.Send(ctx, "user-1", dto.SendEmailRequest{From: "me@example.com", To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrEmptyEmailBody)

	_, err = f.svc.Send(ctx, "user-1", dto.SendEmailRequest{From: "not an address", To: []string{"a@example.com"}, BodyText: "x"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
}
