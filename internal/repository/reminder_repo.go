package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/listing_sub_server/internal/model"
)

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Exists 当前周期内该类型提醒是否已有记录
func (r *ReminderRepository) Exists(ctx context.Context, subscriptionID int64, reminderType model.ReminderType, periodEnd time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ReminderLog{}).
		Where("subscription_id = ? AND reminder_type = ? AND period_end_at = ?",
			subscriptionID, reminderType, periodEnd.UTC()).
		Count(&count).Error
	return count > 0, err
}

// Reserve 占位写入提醒记录，已存在时返回 false
func (r *ReminderRepository) Reserve(ctx context.Context, entry *model.ReminderLog) (bool, error) {
	entry.PeriodEndAt = entry.PeriodEndAt.UTC()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SaveOutcome 写入发送结果
func (r *ReminderRepository) SaveOutcome(ctx context.Context, entry *model.ReminderLog) error {
	return r.db.WithContext(ctx).Model(&model.ReminderLog{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":              entry.Status,
			"sent_at":             entry.SentAt,
			"external_message_id": entry.ExternalMessageID,
			"error_message":       entry.ErrorMessage,
		}).Error
}

// ListBySubscription 按发送时间倒序返回提醒记录
func (r *ReminderRepository) ListBySubscription(ctx context.Context, subscriptionID int64, limit int) ([]*model.ReminderLog, error) {
	var logs []*model.ReminderLog
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("sent_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
