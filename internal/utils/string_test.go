package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain subject", "Budget", "Budget"},
		{"re prefix", "Re: Budget", "Budget"},
		{"fwd prefix", "Fwd: Budget", "Budget"},
		{"fw prefix", "FW: Budget", "Budget"},
		{"stacked prefixes", "Re: Fwd: RE: Budget", "Budget"},
		{"counted reply", "Re[2]: Budget", "Budget"},
		{"case insensitive", "rE: Budget", "Budget"},
		{"localized aw", "AW: Budget", "Budget"},
		{"whitespace trimmed", "  Re:   Budget  ", "Budget"},
		{"prefix mid-subject untouched", "Update re: budget", "Update re: budget"},
		{"empty", "", ""},
		{"prefix only", "Re:", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSubject(tt.input))
		})
	}
}

func TestNormalizeMessageID(t *testing.T) {
	assert.Equal(t, "abc@example.com", NormalizeMessageID("<abc@example.com>"))
	assert.Equal(t, "abc@example.com", NormalizeMessageID("  <abc@example.com>  "))
	assert.Equal(t, "abc@example.com", NormalizeMessageID("abc@example.com"))
	assert.Equal(t, "", NormalizeMessageID(""))
	assert.Equal(t, "", NormalizeMessageID("<>"))
}

func TestSplitMessageIDList(t *testing.T) {
	t.Run("space separated", func(t *testing.T) {
		ids := SplitMessageIDList("<a@x.com> <b@x.com> <c@x.com>")
		assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, ids)
	})

	t.Run("folded header", func(t *testing.T) {
		ids := SplitMessageIDList("<a@x.com>\r\n <b@x.com>\n<c@x.com>")
		assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, ids)
	})

	t.Run("duplicates removed", func(t *testing.T) {
		ids := SplitMessageIDList("<a@x.com> <a@x.com> <b@x.com>")
		assert.Equal(t, []string{"a@x.com", "b@x.com"}, ids)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, SplitMessageIDList(""))
	})
}
