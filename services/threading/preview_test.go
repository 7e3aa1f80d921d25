package threading

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	root, err := svc.Ingest(ctx, "user-1", incomingEmail("<m0@example.com>", "Budget", "alice@example.com", now))
	require.NoError(t, err)
	for i := 1; i <= 4; i++ {
		reply := incomingEmail(fmt.Sprintf("<m%d@example.com>", i), "Re: Budget", "bob@example.com", now.Add(time.Duration(i)*time.Hour))
		reply.InReplyTo = "<m0@example.com>"
		reply.BodyText = fmt.Sprintf("reply number %d", i)
		_, err := svc.Ingest(ctx, "user-1", reply)
		require.NoError(t, err)
	}

	previews, err := svc.Preview(ctx, root.ConversationID)
	require.NoError(t, err)
	require.Len(t, previews, 3)

	// Newest first
	assert.Equal(t, "reply number 4", previews[0].Snippet)
	assert.Equal(t, "reply number 3", previews[1].Snippet)
	assert.Equal(t, "reply number 2", previews[2].Snippet)
	assert.True(t, previews[0].ReceivedAt.After(previews[1].ReceivedAt))
	assert.Equal(t, "bob@example.com", previews[0].FromAddress)
}

func TestPreview_EmptyConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	previews, err := svc.Preview(context.Background(), "conv_missing")
	require.NoError(t, err)
	assert.Empty(t, previews)
}

func TestMakeSnippet(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		assert.Equal(t, "hello world", makeSnippet("hello world", "", 200))
	})

	t.Run("cuts on a word boundary", func(t *testing.T) {
		snippet := makeSnippet("the quick brown fox jumps over the lazy dog", "", 15)
		assert.Equal(t, "the quick brown", snippet)
	})

	t.Run("never ends mid-word", func(t *testing.T) {
		snippet := makeSnippet("alpha beta gamma delta", "", 13)
		assert.Equal(t, "alpha beta", snippet)
	})

	t.Run("hard-cuts a single oversized token", func(t *testing.T) {
		long := strings.Repeat("x", 50)
		snippet := makeSnippet(long, "", 10)
		assert.Equal(t, strings.Repeat("x", 10), snippet)
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "one two three", makeSnippet("one\n\n  two\t three", "", 200))
	})

	t.Run("falls back to stripped html", func(t *testing.T) {
		html := `<html><head><style>p{color:red}</style></head><body><p>Hello <b>from</b> HTML</p><script>alert(1)</script></body></html>`
		assert.Equal(t, "Hello from HTML", makeSnippet("", html, 200))
	})

	t.Run("prefers the text body over html", func(t *testing.T) {
		assert.Equal(t, "plain wins", makeSnippet("plain wins", "<p>html loses</p>", 200))
	})
}
