package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/models"
)

func TestBulkAction_MarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := f.ingest(t, "user-1", "<a@example.com>", "Alpha", "alice@example.com", now)
	b := f.ingest(t, "user-1", "<b@example.com>", "Beta", "bob@example.com", now.Add(time.Minute))

	result, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMarkRead,
		ConversationIDs: []string{a, b},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	for _, id := range []string{a, b} {
		conversation, err := f.repos.ConversationRepository.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, conversation.UnreadCount)
	}
}

func TestBulkAction_PartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := f.ingest(t, "user-1", "<a@example.com>", "Alpha", "alice@example.com", now)
	b := f.ingest(t, "user-1", "<b@example.com>", "Beta", "bob@example.com", now.Add(time.Minute))

	result, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMarkRead,
		ConversationIDs: []string{a, "conv_missing", b},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Outcomes, 3)

	for _, outcome := range result.Outcomes {
		if outcome.ConversationID == "conv_missing" {
			assert.False(t, outcome.Success)
			assert.Equal(t, er.ErrConversationNotFound.Error(), outcome.Error)
		} else {
			assert.True(t, outcome.Success)
			assert.Empty(t, outcome.Error)
		}
	}

	// The good siblings committed despite the failure
	conversation, err := f.repos.ConversationRepository.GetByID(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 0, conversation.UnreadCount)
}

func TestBulkAction_Move(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.ingest(t, "user-1", "<a@example.com>", "Alpha", "alice@example.com", time.Now())

	_, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMove,
		ConversationIDs: []string{a},
	})
	assert.ErrorIs(t, err, er.ErrUnknownFolder)

	result, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMove,
		ConversationIDs: []string{a},
		Folder:          models.FolderArchive,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	conversation, err := f.repos.ConversationRepository.GetByID(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, models.FolderArchive, conversation.Folder)
}

func TestBulkAction_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.BulkAction(ctx, "", dto.BulkActionRequest{
		Action:          dto.BulkActionMarkRead,
		ConversationIDs: []string{"conv_x"},
	})
	assert.ErrorIs(t, err, er.ErrUserMissing)

	_, err = f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action: dto.BulkActionMarkRead,
	})
	assert.ErrorIs(t, err, er.ErrInvalidInput)

	_, err = f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          "shred",
		ConversationIDs: []string{"conv_x"},
	})
	assert.ErrorIs(t, err, er.ErrUnknownBulkAction)
}

func TestBulkAction_CancelledContextReturnsPartialResult(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := f.ingest(t, "user-1", "<a@example.com>", "Alpha", "alice@example.com", now)
	b := f.ingest(t, "user-1", "<b@example.com>", "Beta", "bob@example.com", now.Add(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMarkRead,
		ConversationIDs: []string{a, b},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Outcomes)
	assert.Equal(t, 0, result.Succeeded)
}

func TestBulkAction_DeterministicOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	a := f.ingest(t, "user-1", "<a@example.com>", "Alpha", "alice@example.com", now)
	b := f.ingest(t, "user-1", "<b@example.com>", "Beta", "bob@example.com", now.Add(time.Minute))

	result, err := f.svc.BulkAction(ctx, "user-1", dto.BulkActionRequest{
		Action:          dto.BulkActionMarkRead,
		ConversationIDs: []string{b, a},
	})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	// Outcomes follow sorted id order regardless of request order
	sorted := []string{a, b}
	if b < a {
		sorted = []string{b, a}
	}
	assert.Equal(t, sorted[0], result.Outcomes[0].ConversationID)
	assert.Equal(t, sorted[1], result.Outcomes[1].ConversationID)
}
