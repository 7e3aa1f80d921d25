package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRegex = regexp.MustCompile(`(?i)^(re|fwd|fw|aw|sv|vs)(\[\d+\])?:\s*`)

// NormalizeSubject strips reply/forward prefixes (Re:, Fwd:, FW: ...)
// from a subject, repeatedly, so "Re: Fwd: Budget" and "Budget" compare
// equal for thread matching.
func NormalizeSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for subjectPrefixRegex.MatchString(subject) {
		subject = subjectPrefixRegex.ReplaceAllString(subject, "")
		subject = strings.TrimSpace(subject)
	}
	return subject
}

// NormalizeMessageID strips surrounding whitespace and angle brackets
// from an RFC 5322 message-id.
func NormalizeMessageID(messageID string) string {
	messageID = strings.TrimSpace(messageID)
	messageID = strings.TrimPrefix(messageID, "<")
	messageID = strings.TrimSuffix(messageID, ">")
	return messageID
}

// SplitMessageIDList splits a References-style header value into clean
// message-ids. The value may be space or newline separated.
func SplitMessageIDList(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", " ")
	raw = strings.ReplaceAll(raw, "\n", " ")

	var ids []string
	for _, part := range strings.Fields(raw) {
		id := NormalizeMessageID(part)
		if id != "" && !IsStringInSlice(id, ids) {
			ids = append(ids, id)
		}
	}
	return ids
}
