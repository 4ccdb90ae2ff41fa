package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/listing_sub_server/internal/model"
)

// upsertColumns 续费/升级时整行覆盖的列
var upsertColumns = []string{
	"tier", "duration_type", "start_at", "end_at", "is_active",
	"amount_paid", "funding_payment_claim_id", "updated_at",
}

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) GetBySubjectID(ctx context.Context, subjectID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Upsert 按 subject_id 插入或整行覆盖，完成后 sub 为库中最新值
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *model.Subscription) error {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(sub).Error
	if err != nil {
		return err
	}
	// 冲突更新时驱动回填的自增 id 不一定是已有行的 id，按 subject_id 重新读取
	stored := new(model.Subscription)
	if err := db.Where("subject_id = ?", sub.SubjectID).First(stored).Error; err != nil {
		return err
	}
	*sub = *stored
	return nil
}

// SetActive 修改管理员启用标记，返回受影响行数
func (r *SubscriptionRepository) SetActive(ctx context.Context, subjectID int64, active bool) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subject_id = ?", subjectID).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}

// ListReminderCandidates 启用中且 end_at 落在 (after, until] 内的订阅
func (r *SubscriptionRepository) ListReminderCandidates(ctx context.Context, after, until time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND end_at > ? AND end_at <= ?", true, after.UTC(), until.UTC()).
		Order("end_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}
