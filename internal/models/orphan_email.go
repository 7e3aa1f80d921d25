package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/internal/utils"
)

// OrphanEmail records a message-id that was referenced by an ingested
// email but has not itself arrived yet. When the missing parent shows
// up it is routed to the conversation waiting for it.
type OrphanEmail struct {
	ID             string    `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID         string    `gorm:"column:user_id;type:varchar(50);index;not null"`
	MessageID      string    `gorm:"column:message_id;type:varchar(255);index"`
	ReferencedBy   string    `gorm:"column:referenced_by;type:varchar(255)"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(50);index"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (OrphanEmail) TableName() string {
	return "orphan_emails"
}

func (m *OrphanEmail) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("orpn", 12)
	}
	return nil
}
