package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/internal/utils"
)

// Well-known folders. User-defined folders are arbitrary strings.
const (
	FolderInbox   = "INBOX"
	FolderSent    = "Sent"
	FolderArchive = "Archive"
	FolderTrash   = "Trash"
)

// Email is one immutable message as delivered by the normalizer. Only
// the flag fields (read, starred, folder) change after ingestion.
type Email struct {
	ID             string         `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID         string         `gorm:"column:user_id;type:varchar(50);uniqueIndex:idx_user_message_id;index;not null"`
	MessageID      string         `gorm:"column:message_id;type:varchar(255);uniqueIndex:idx_user_message_id;not null"`
	ConversationID string         `gorm:"column:conversation_id;type:varchar(50);index"`
	Folder         string         `gorm:"column:folder;type:varchar(100);index;not null"`
	ImapUID        uint32         `gorm:"column:imap_uid;index"`
	InReplyTo      string         `gorm:"column:in_reply_to;type:varchar(255);index"`
	References     pq.StringArray `gorm:"column:references;type:text[]"`

	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	CleanSubject string         `gorm:"column:clean_subject;type:varchar(1000);index"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`

	ReceivedAt time.Time `gorm:"column:received_at;type:timestamp;index;not null"`

	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	IsRead    bool `gorm:"column:is_read;default:false;index"`
	IsStarred bool `gorm:"column:is_starred;default:false"`

	RawHeaders JSONMap `gorm:"column:raw_headers;type:jsonb"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}

// AllParticipants returns every address on the message, deduplicated:
// sender first, then to and cc. Bcc is deliberately excluded from the
// participant set shown on conversations.
func (e *Email) AllParticipants() []string {
	participants := make([]string, 0, 1+len(e.ToAddresses)+len(e.CcAddresses))
	if e.FromAddress != "" {
		participants = append(participants, e.FromAddress)
	}
	participants = append(participants, e.ToAddresses...)
	participants = append(participants, e.CcAddresses...)
	return utils.UniqueStrings(participants)
}

// EmailFlags is the mutable portion of an Email, captured before and
// after a mutation so aggregate counts can be adjusted incrementally.
type EmailFlags struct {
	IsRead        bool
	IsStarred     bool
	Folder        string
	HasAttachment bool
}

func (e *Email) Flags() EmailFlags {
	return EmailFlags{
		IsRead:        e.IsRead,
		IsStarred:     e.IsStarred,
		Folder:        e.Folder,
		HasAttachment: e.HasAttachment,
	}
}
