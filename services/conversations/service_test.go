package conversations

import (
	"context"
	"fmt"
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
	svc       interfaces.ConversationService
	threading interfaces.ThreadingService
	repos     *repository.Repositories
	publisher *testutil.CapturingPublisher
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
		svc:       NewConversationService(log, repos, threadingService, publisher),
		threading: threadingService,
		repos:     repos,
		publisher: publisher,
	}
}

// ingest seeds one single-member conversation and returns its id.
func (f *fixture) ingest(t *testing.T, userID, messageID, subject, from string, receivedAt time.Time) string {
	t.Helper()
	email, err := f.threading.Ingest(context.Background(), userID, &interfaces.IncomingEmail{
		MessageID:   messageID,
		Subject:     subject,
		FromAddress: from,
		ToAddresses: []string{"me@mailgrove.local"},
		BodyText:    "body of " + subject,
		ReceivedAt:  receivedAt,
	})
	require.NoError(t, err)
	return email.ConversationID
}

func TestList_OrderingAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 5; i++ {
		id := f.ingest(t, "user-1", fmt.Sprintf("<m%d@example.com>", i), fmt.Sprintf("Topic %d", i), "alice@example.com", now.Add(time.Duration(i)*time.Hour))
		ids = append(ids, id)
	}

	resp, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 2, resp.Limit)
	require.Len(t, resp.Conversations, 2)
	// Newest activity first
	assert.Equal(t, ids[4], resp.Conversations[0].ID)
	assert.Equal(t, ids[3], resp.Conversations[1].ID)

	next, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, next.Conversations, 2)
	assert.Equal(t, ids[2], next.Conversations[0].ID)
	assert.Equal(t, ids[1], next.Conversations[1].ID)
}

func TestList_DefaultAndInvalidPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 25, resp.Limit)

	_, err = f.svc.List(ctx, "user-1", dto.ConversationListQuery{Limit: 201})
	assert.ErrorIs(t, err, er.ErrInvalidPagination)

	_, err = f.svc.List(ctx, "user-1", dto.ConversationListQuery{Limit: -1})
	assert.ErrorIs(t, err, er.ErrInvalidPagination)

	_, err = f.svc.List(ctx, "user-1", dto.ConversationListQuery{Offset: -1})
	assert.ErrorIs(t, err, er.ErrInvalidPagination)

	_, err = f.svc.List(ctx, "", dto.ConversationListQuery{})
	assert.ErrorIs(t, err, er.ErrUserMissing)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	readID := f.ingest(t, "user-1", "<read@example.com>", "Read one", "alice@example.com", now)
	unreadID := f.ingest(t, "user-1", "<unread@example.com>", "Unread one", "bob@example.com", now.Add(time.Minute))

	_, err := f.svc.SetRead(ctx, "user-1", readID, true)
	require.NoError(t, err)
	_, err = f.svc.SetStarred(ctx, "user-1", readID, true)
	require.NoError(t, err)

	unread, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Conversations, 1)
	assert.Equal(t, unreadID, unread.Conversations[0].ID)
	assert.Equal(t, int64(1), unread.Total)

	starred, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{StarredOnly: true})
	require.NoError(t, err)
	require.Len(t, starred.Conversations, 1)
	assert.Equal(t, readID, starred.Conversations[0].ID)
	assert.Equal(t, int64(1), starred.Total)
}

func TestList_FilteredPagesStayFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Interleave read and unread conversations so a page of the raw
	// folder would be mostly read mail.
	var unreadIDs []string
	for i := 0; i < 6; i++ {
		id := f.ingest(t, "user-1", fmt.Sprintf("<m%d@example.com>", i), fmt.Sprintf("Topic %d", i), "alice@example.com", now.Add(time.Duration(i)*time.Hour))
		if i%2 == 0 {
			_, err := f.svc.SetRead(ctx, "user-1", id, true)
			require.NoError(t, err)
		} else {
			unreadIDs = append(unreadIDs, id)
		}
	}

	page, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{UnreadOnly: true, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Conversations, 2)
	assert.Equal(t, unreadIDs[2], page.Conversations[0].ID)
	assert.Equal(t, unreadIDs[1], page.Conversations[1].ID)

	rest, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{UnreadOnly: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest.Conversations, 1)
	assert.Equal(t, unreadIDs[0], rest.Conversations[0].ID)
}

func TestList_IncludesPreviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", time.Now())

	resp, err := f.svc.List(ctx, "user-1", dto.ConversationListQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	require.Len(t, resp.Conversations[0].Previews, 1)
	assert.Equal(t, "body of Budget", resp.Conversations[0].Previews[0].Snippet)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", time.Now())

	detail, err := f.svc.Get(ctx, "user-1", id)
	require.NoError(t, err)
	assert.Equal(t, id, detail.Conversation.ID)
	require.Len(t, detail.Emails, 1)
	assert.Equal(t, "root@example.com", detail.Emails[0].MessageID)

	// Another user's conversation is indistinguishable from a missing one
	_, err = f.svc.Get(ctx, "user-2", id)
	assert.ErrorIs(t, err, er.ErrConversationNotFound)

	_, err = f.svc.Get(ctx, "user-1", "conv_missing")
	assert.ErrorIs(t, err, er.ErrConversationNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	budgetID := f.ingest(t, "user-1", "<b@example.com>", "Budget planning", "alice@example.com", now)
	f.ingest(t, "user-1", "<s@example.com>", "Standup notes", "bob@example.com", now.Add(time.Minute))

	resp, err := f.svc.Search(ctx, "user-1", dto.ConversationSearchQuery{Query: "budget"})
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, budgetID, resp.Conversations[0].ID)

	none, err := f.svc.Search(ctx, "user-2", dto.ConversationSearchQuery{Query: "budget"})
	require.NoError(t, err)
	assert.Empty(t, none.Conversations)
}

func TestSearch_ScopedToFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	inboxID := f.ingest(t, "user-1", "<b1@example.com>", "Budget planning", "alice@example.com", now)
	archivedID := f.ingest(t, "user-1", "<b2@example.com>", "Budget review", "bob@example.com", now.Add(time.Minute))
	_, err := f.svc.MoveToFolder(ctx, "user-1", archivedID, models.FolderArchive)
	require.NoError(t, err)

	all, err := f.svc.Search(ctx, "user-1", dto.ConversationSearchQuery{Query: "budget"})
	require.NoError(t, err)
	assert.Len(t, all.Conversations, 2)

	inbox, err := f.svc.Search(ctx, "user-1", dto.ConversationSearchQuery{Query: "budget", Folder: models.FolderInbox})
	require.NoError(t, err)
	require.Len(t, inbox.Conversations, 1)
	assert.Equal(t, inboxID, inbox.Conversations[0].ID)

	archived, err := f.svc.Search(ctx, "user-1", dto.ConversationSearchQuery{Query: "budget", Folder: models.FolderArchive})
	require.NoError(t, err)
	require.Len(t, archived.Conversations, 1)
	assert.Equal(t, archivedID, archived.Conversations[0].ID)
}

func TestSetRead_FlipsMembersAndCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	id := f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", now)
	reply, err := f.threading.Ingest(ctx, "user-1", &interfaces.IncomingEmail{
		MessageID:   "<reply@example.com>",
		InReplyTo:   "<root@example.com>",
		Subject:     "Re: Budget",
		FromAddress: "bob@example.com",
		ReceivedAt:  now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, id, reply.ConversationID)

	updated, err := f.svc.SetRead(ctx, "user-1", id, true)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.UnreadCount)

	emails, err := f.repos.EmailRepository.ListByConversation(ctx, id)
	require.NoError(t, err)
	for _, email := range emails {
		assert.True(t, email.IsRead)
	}

	// Marking an already-read conversation again changes nothing
	again, err := f.svc.SetRead(ctx, "user-1", id, true)
	require.NoError(t, err)
	assert.Equal(t, 0, again.UnreadCount)

	back, err := f.svc.SetRead(ctx, "user-1", id, false)
	require.NoError(t, err)
	assert.Equal(t, 2, back.UnreadCount)
}

func TestSetStarred(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", time.Now())

	updated, err := f.svc.SetStarred(ctx, "user-1", id, true)
	require.NoError(t, err)
	assert.True(t, updated.Starred)
	// Star is a conversation-level toggle; member flags stay put
	emails, err := f.repos.EmailRepository.ListByConversation(ctx, id)
	require.NoError(t, err)
	assert.False(t, emails[0].IsStarred)
}

func TestMoveToFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", time.Now())

	_, err := f.svc.MoveToFolder(ctx, "user-1", id, "")
	assert.ErrorIs(t, err, er.ErrUnknownFolder)

	updated, err := f.svc.MoveToFolder(ctx, "user-1", id, models.FolderArchive)
	require.NoError(t, err)
	assert.Equal(t, models.FolderArchive, updated.Folder)

	emails, err := f.repos.EmailRepository.ListByConversation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FolderArchive, emails[0].Folder)
}

func TestDelete_TrashThenPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.ingest(t, "user-1", "<root@example.com>", "Budget", "alice@example.com", time.Now())

	// First delete is a move to Trash
	require.NoError(t, f.svc.Delete(ctx, "user-1", id))
	conversation, err := f.repos.ConversationRepository.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, conversation)
	assert.Equal(t, models.FolderTrash, conversation.Folder)

	// Second delete purges for good
	require.NoError(t, f.svc.Delete(ctx, "user-1", id))
	conversation, err = f.repos.ConversationRepository.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, conversation)

	emails, err := f.repos.EmailRepository.ListByConversation(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, emails)

	require.ErrorIs(t, f.svc.Delete(ctx, "user-1", id), er.ErrConversationNotFound)
}
