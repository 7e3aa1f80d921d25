package utils

import (
	"crypto/sha256"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateNanoIDWithPrefix mints a prefixed identifier such as
// "email_x92h...". Panics only if the entropy source fails.
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	id, err := gonanoid.Generate(idAlphabet, length)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}

// GenerateMessageID creates an RFC 5322 message-id for outgoing mail.
// The optional metadata is hashed into the local part so retried sends
// of the same payload stay correlated.
func GenerateMessageID(domain, metadata string) string {
	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		panic(err)
	}

	timestamp := time.Now().UnixMicro()

	var hashComponent string
	if metadata != "" {
		hash := sha256.Sum256([]byte(metadata))
		hashComponent = fmt.Sprintf(".%x", hash[:4])
	}

	localPart := fmt.Sprintf("%d.%s%s", timestamp, id, hashComponent)
	return fmt.Sprintf("<%s@%s>", localPart, domain)
}

// DeriveMessageID builds a deterministic message-id from message
// content, for inbound mail that arrived without one. The same
// delivery retried yields the same id, preserving idempotency.
func DeriveMessageID(domain, seed string) string {
	hash := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("%x@%s.synthesized", hash[:16], domain)
}
