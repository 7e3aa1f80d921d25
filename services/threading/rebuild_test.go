package threading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	er "github.com/mailgrove/mailgrove/internal/errors"
)

func TestRebuild(t *testing.T) {
	svc, repos, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	root, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
	require.NoError(t, err)

	reply := incomingEmail("<reply@example.com>", "Re: Budget", "bob@example.com", now.Add(time.Hour))
	reply.InReplyTo = "<root@example.com>"
	replyEmail, err := svc.Ingest(ctx, "user-1", reply)
	require.NoError(t, err)
	require.Equal(t, root.ConversationID, replyEmail.ConversationID)

	unrelated, err := svc.Ingest(ctx, "user-1", incomingEmail("<other@example.com>", "Standup notes", "carol@example.com", now))
	require.NoError(t, err)
	require.NotEqual(t, root.ConversationID, unrelated.ConversationID)

	refiled, err := svc.Rebuild(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, refiled)

	// The old conversation rows are gone; membership is equivalent
	rootAfter, err := repos.EmailRepository.GetByID(ctx, root.ID)
	require.NoError(t, err)
	replyAfter, err := repos.EmailRepository.GetByID(ctx, replyEmail.ID)
	require.NoError(t, err)
	otherAfter, err := repos.EmailRepository.GetByID(ctx, unrelated.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, rootAfter.ConversationID)
	assert.Equal(t, rootAfter.ConversationID, replyAfter.ConversationID)
	assert.NotEqual(t, rootAfter.ConversationID, otherAfter.ConversationID)

	rebuilt, err := repos.ConversationRepository.GetByID(ctx, rootAfter.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, rebuilt)
	assert.Equal(t, 2, rebuilt.MessageCount)
	assert.Equal(t, "reply@example.com", rebuilt.LastMessageID)
}

func TestRebuild_OtherUsersUntouched(t *testing.T) {
	svc, repos, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mine, err := svc.Ingest(ctx, "user-1", incomingEmail("<mine@example.com>", "Budget", "alice@example.com", now))
	require.NoError(t, err)
	theirs, err := svc.Ingest(ctx, "user-2", incomingEmail("<theirs@example.com>", "Budget", "bob@example.com", now))
	require.NoError(t, err)

	_, err = svc.Rebuild(ctx, "user-1")
	require.NoError(t, err)

	kept, err := repos.ConversationRepository.GetByID(ctx, theirs.ConversationID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	mineAfter, err := repos.EmailRepository.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "", mineAfter.ConversationID)
}

func TestRebuild_RequiresUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Rebuild(context.Background(), "")
	assert.ErrorIs(t, err, er.ErrUserMissing)
}
