package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("email", 24)
	assert.True(t, strings.HasPrefix(id, "email_"))
	assert.Len(t, id, len("email_")+24)

	other := GenerateNanoIDWithPrefix("email", 24)
	assert.NotEqual(t, id, other)
}

func TestGenerateMessageID(t *testing.T) {
	id := GenerateMessageID("example.com", "Budget")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@example.com>"))

	// Fresh entropy and timestamp per call
	assert.NotEqual(t, id, GenerateMessageID("example.com", "Budget"))
}

func TestDeriveMessageID(t *testing.T) {
	first := DeriveMessageID("example.com", "user|alice@example.com|Budget|1234")
	second := DeriveMessageID("example.com", "user|alice@example.com|Budget|1234")
	assert.Equal(t, first, second)
	assert.True(t, strings.HasSuffix(first, "@example.com.synthesized"))

	different := DeriveMessageID("example.com", "user|alice@example.com|Budget|5678")
	assert.NotEqual(t, first, different)
}

func TestExtractDomainFromEmail(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomainFromEmail("alice@example.com"))
	assert.Equal(t, "example.com", ExtractDomainFromEmail("Alice Smith <alice@example.com>"))
	assert.Equal(t, "", ExtractDomainFromEmail(""))
	assert.Equal(t, "", ExtractDomainFromEmail("not-an-address"))
}
