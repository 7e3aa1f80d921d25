package interfaces

import (
	"context"
	"time"
)

// IncomingEmail is a normalized message as produced by an EmailSource.
// Address fields are already lowercased and stripped of display names.
type IncomingEmail struct {
	MessageID   string
	InReplyTo   string
	References  []string
	Subject     string
	FromAddress string
	ToAddresses []string
	CcAddresses []string
	BodyText    string
	BodyHTML    string
	ReceivedAt  time.Time
	RawHeaders  map[string]interface{}
	Attachments []IncomingAttachment
	UID         uint32
	Folder      string
}

type IncomingAttachment struct {
	Filename    string
	ContentType string
	IsInline    bool
	ContentID   string
	Data        []byte
}

// MailAccount identifies one remote mailbox to sync.
type MailAccount struct {
	UserID       string   `json:"userId"`
	Email        string   `json:"email"`
	ImapServer   string   `json:"imapServer"`
	ImapPort     int      `json:"imapPort"`
	ImapUsername string   `json:"imapUsername"`
	ImapPassword string   `json:"imapPassword"`
	ImapSecurity string   `json:"imapSecurity"`
	Folders      []string `json:"folders"`
}

// EmailSource fetches new mail for a single account. Implementations
// return emails with UID strictly greater than sinceUID for the folder.
type EmailSource interface {
	FetchNew(ctx context.Context, account MailAccount, folder string, sinceUID uint32) ([]*IncomingEmail, error)
}
