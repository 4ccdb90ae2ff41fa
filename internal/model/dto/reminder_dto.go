package dto

import (
	"time"

	"github.com/qs3c/listing_sub_server/internal/model"
)

// SweepReport 一次到期提醒扫描的汇总
type SweepReport struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Candidates int         `json:"candidates"`
	Sent       int         `json:"sent"`
	Failed     int         `json:"failed"`
	Skipped    int         `json:"skipped"`
	Items      []SweepItem `json:"items,omitempty"`
	ArchiveURL string      `json:"archive_url,omitempty"`
}

// SweepItem 单个订阅的提醒结果
type SweepItem struct {
	SubscriptionID int64                `json:"subscription_id"`
	SubjectID      int64                `json:"subject_id"`
	ReminderType   model.ReminderType   `json:"reminder_type"`
	Status         model.ReminderStatus `json:"status"`
	MessageID      string               `json:"message_id,omitempty"`
	Error          string               `json:"error,omitempty"`
}
