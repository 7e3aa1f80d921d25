package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/internal/utils"
)

// Conversation is the derived aggregate over all emails sharing a
// thread key. Aggregate fields are maintained incrementally by the
// threading service; nothing else writes them.
type Conversation struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(50);uniqueIndex:idx_user_thread_key;index:idx_user_folder_last_message;index;not null"`
	ThreadKey string `gorm:"column:thread_key;type:varchar(255);uniqueIndex:idx_user_thread_key;index"`

	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	CleanSubject string         `gorm:"column:clean_subject;type:varchar(1000);index"`
	Participants pq.StringArray `gorm:"column:participants;type:text[]"`
	Folder       string         `gorm:"column:folder;type:varchar(100);index:idx_user_folder_last_message"`

	MessageCount   int  `gorm:"column:message_count;default:0"`
	UnreadCount    int  `gorm:"column:unread_count;default:0"`
	HasAttachments bool `gorm:"column:has_attachments;default:false"`

	// Starred is an independent toggle, not derived from member flags.
	Starred bool `gorm:"column:starred;default:false"`

	LastMessageID  string     `gorm:"column:last_message_id;type:varchar(255)"`
	LastMessageAt  *time.Time `gorm:"column:last_message_at;type:timestamp;index:idx_user_folder_last_message"`
	FirstMessageAt *time.Time `gorm:"column:first_message_at;type:timestamp"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateNanoIDWithPrefix("conv", 16)
	}

	// The user_id scoping on thread_key is enforced by the composite
	// unique index, so a second BeforeCreate field hook is not needed.
	c.CreatedAt = utils.Now()
	return nil
}

// PreviewMessage is the bounded projection of one member email shown in
// the collapsed conversation view. Never persisted.
type PreviewMessage struct {
	EmailID     string    `json:"emailId"`
	FromAddress string    `json:"fromAddress"`
	FromName    string    `json:"fromName"`
	Snippet     string    `json:"snippet"`
	ReceivedAt  time.Time `json:"receivedAt"`
	IsRead      bool      `json:"isRead"`
}
