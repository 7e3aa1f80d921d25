package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailgrove/mailgrove/internal/utils"
)

// Quarantine reasons.
const (
	QuarantineReasonMalformed       = "malformed"
	QuarantineReasonCrossUserThread = "cross_user_thread"
	QuarantineReasonMissingThread   = "missing_thread"
)

// QuarantinedEmail holds an email the ingestion path refused to file,
// with enough context to reprocess it after the underlying problem is
// fixed. Quarantined mail is never silently dropped.
type QuarantinedEmail struct {
	ID        string    `gorm:"column:id;type:varchar(50);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:varchar(50);index"`
	MessageID string    `gorm:"column:message_id;type:varchar(255);index"`
	Reason    string    `gorm:"column:reason;type:varchar(50);index;not null"`
	Detail    string    `gorm:"column:detail;type:text"`
	Payload   JSONMap   `gorm:"column:payload;type:jsonb"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (QuarantinedEmail) TableName() string {
	return "quarantined_emails"
}

func (q *QuarantinedEmail) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = utils.GenerateNanoIDWithPrefix("quar", 12)
	}
	return nil
}
