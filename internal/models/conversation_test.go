package models

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thread keys are scoped per user. Two users ingesting the same
// newsletter share a message-id, so the unique index must be composite
// over (user_id, thread_key), not thread_key alone.
func TestConversation_ThreadKeyUniqueIndexIsUserScoped(t *testing.T) {
	typ := reflect.TypeOf(Conversation{})

	userID, ok := typ.FieldByName("UserID")
	require.True(t, ok)
	threadKey, ok := typ.FieldByName("ThreadKey")
	require.True(t, ok)

	assert.True(t, strings.Contains(userID.Tag.Get("gorm"), "uniqueIndex:idx_user_thread_key"))
	assert.True(t, strings.Contains(threadKey.Tag.Get("gorm"), "uniqueIndex:idx_user_thread_key"))
}
