package threading

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgrove/mailgrove/interfaces"
	"github.com/mailgrove/mailgrove/internal/models"
)

func TestOnMemberFlagChanged(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("marking read decrements unread", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		email, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		updated, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: false}, models.EmailFlags{IsRead: true})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.UnreadCount)
	})

	t.Run("marking unread increments unread", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		email, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		read, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: false}, models.EmailFlags{IsRead: true})
		require.NoError(t, err)
		require.Equal(t, 0, read.UnreadCount)

		unread, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: true}, models.EmailFlags{IsRead: false})
		require.NoError(t, err)
		assert.Equal(t, 1, unread.UnreadCount)
	})

	t.Run("unread never exceeds message count", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		email, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		// An over-applied increment is clamped to the member count
		updated, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: true}, models.EmailFlags{IsRead: false})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.MessageCount)
		assert.Equal(t, 1, updated.UnreadCount)
	})

	t.Run("unread never goes negative", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		sent := incomingEmail("<sent@example.com>", "Outgoing", "me@mailgrove.local", now)
		sent.Folder = models.FolderSent
		email, err := svc.Ingest(ctx, "user-1", sent)
		require.NoError(t, err)

		updated, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: false}, models.EmailFlags{IsRead: true})
		require.NoError(t, err)
		assert.Equal(t, 0, updated.UnreadCount)
	})

	t.Run("star flips leave aggregates alone", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		email, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		updated, err := svc.OnMemberFlagChanged(ctx, email.ConversationID,
			models.EmailFlags{IsRead: false, IsStarred: false}, models.EmailFlags{IsRead: false, IsStarred: true})
		require.NoError(t, err)
		assert.Equal(t, 1, updated.UnreadCount)
		assert.Equal(t, 1, updated.MessageCount)
	})
}

func TestOnMemberRemoved(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("removing the newest member rolls the pointer back", func(t *testing.T) {
		svc, repos, _ := newTestService(t)

		root, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)
		reply := incomingEmail("<reply@example.com>", "Re: Budget", "bob@example.com", now.Add(time.Hour))
		reply.InReplyTo = "<root@example.com>"
		replyEmail, err := svc.Ingest(ctx, "user-1", reply)
		require.NoError(t, err)

		require.NoError(t, repos.EmailRepository.HardDelete(ctx, replyEmail.ID))
		updated, err := svc.OnMemberRemoved(ctx, root.ConversationID, replyEmail)
		require.NoError(t, err)
		require.NotNil(t, updated)

		assert.Equal(t, 1, updated.MessageCount)
		assert.Equal(t, 1, updated.UnreadCount)
		assert.Equal(t, "root@example.com", updated.LastMessageID)
		require.NotNil(t, updated.LastMessageAt)
		assert.True(t, updated.LastMessageAt.Equal(now))
	})

	t.Run("removing a read member leaves unread alone", func(t *testing.T) {
		svc, repos, _ := newTestService(t)

		root, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)
		reply := incomingEmail("<reply@example.com>", "Re: Budget", "bob@example.com", now.Add(time.Hour))
		reply.InReplyTo = "<root@example.com>"
		replyEmail, err := svc.Ingest(ctx, "user-1", reply)
		require.NoError(t, err)

		require.NoError(t, repos.EmailRepository.UpdateFlags(ctx, replyEmail.ID, map[string]interface{}{"is_read": true}))
		replyEmail.IsRead = true

		require.NoError(t, repos.EmailRepository.HardDelete(ctx, replyEmail.ID))
		updated, err := svc.OnMemberRemoved(ctx, root.ConversationID, replyEmail)
		require.NoError(t, err)

		assert.Equal(t, 1, updated.MessageCount)
		// Only the unread root remains; clamping keeps the counter honest
		assert.Equal(t, 1, updated.UnreadCount)
	})

	t.Run("attachment flag is re-derived", func(t *testing.T) {
		svc, repos, _ := newTestService(t)

		root, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		withFile := incomingEmail("<file@example.com>", "Re: Budget", "bob@example.com", now.Add(time.Hour))
		withFile.InReplyTo = "<root@example.com>"
		withFile.Attachments = []interfaces.IncomingAttachment{{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")}}
		fileEmail, err := svc.Ingest(ctx, "user-1", withFile)
		require.NoError(t, err)

		conversation := conversationOf(t, repos, root)
		require.True(t, conversation.HasAttachments)

		require.NoError(t, repos.EmailRepository.HardDelete(ctx, fileEmail.ID))
		updated, err := svc.OnMemberRemoved(ctx, root.ConversationID, fileEmail)
		require.NoError(t, err)
		assert.False(t, updated.HasAttachments)
	})

	t.Run("removing the last member deletes the conversation", func(t *testing.T) {
		svc, repos, _ := newTestService(t)

		root, err := svc.Ingest(ctx, "user-1", incomingEmail("<root@example.com>", "Budget", "alice@example.com", now))
		require.NoError(t, err)

		require.NoError(t, repos.EmailRepository.HardDelete(ctx, root.ID))
		updated, err := svc.OnMemberRemoved(ctx, root.ConversationID, root)
		require.NoError(t, err)
		assert.Nil(t, updated)

		gone, err := repos.ConversationRepository.GetByID(ctx, root.ConversationID)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}
