package model

import (
	"time"
)

// ReminderLog 每次发送尝试写一行，(subscription_id, reminder_type, period_end_at) 唯一
type ReminderLog struct {
	ID                int64          `gorm:"primaryKey" json:"id"`
	SubjectID         int64          `gorm:"not null;index" json:"subject_id"`
	SubscriptionID    int64          `gorm:"not null;uniqueIndex:uk_reminder_period" json:"subscription_id"`
	ReminderType      ReminderType   `gorm:"size:20;not null;uniqueIndex:uk_reminder_period" json:"reminder_type"`
	PeriodEndAt       time.Time      `gorm:"not null;uniqueIndex:uk_reminder_period" json:"period_end_at"`
	SentAt            time.Time      `gorm:"not null;index" json:"sent_at"`
	Status            ReminderStatus `gorm:"size:20;not null" json:"status"`
	ExternalMessageID string         `gorm:"size:100" json:"external_message_id,omitempty"`
	ErrorMessage      string         `gorm:"type:text" json:"error_message,omitempty"`
}

func (ReminderLog) TableName() string {
	return "reminder_logs"
}
