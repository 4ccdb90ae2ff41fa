package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
)

type ClaimRepository struct {
	db *gorm.DB
}

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *ClaimRepository) WithTx(tx *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: tx}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *model.PaymentClaim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *ClaimRepository) GetByID(ctx context.Context, id int64) (*model.PaymentClaim, error) {
	var claim model.PaymentClaim
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// ExistsVerifiedReference 交易码是否已被任何人核销
func (r *ClaimRepository) ExistsVerifiedReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PaymentClaim{}).
		Where("external_reference = ? AND state = ?", reference, model.ClaimVerified).
		Count(&count).Error
	return count > 0, err
}

// List 按条件分页查询，最新提交的在前
func (r *ClaimRepository) List(ctx context.Context, filter dto.ClaimFilter) ([]*model.PaymentClaim, int64, error) {
	var claims []*model.PaymentClaim
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PaymentClaim{})
	if filter.SubjectID != nil {
		query = query.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.From != nil {
		query = query.Where("submitted_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("submitted_at < ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("submitted_at DESC, id DESC").Offset(offset).Limit(filter.PageSize).Find(&claims).Error; err != nil {
		return nil, 0, err
	}

	return claims, total, nil
}

// MarkVerified 仅当仍为 pending 时更新，返回受影响行数
func (r *ClaimRepository) MarkVerified(ctx context.Context, id, adminID int64, at time.Time) (int64, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"state":       model.ClaimVerified,
		"verified_at": at,
		"verified_by": adminID,
		"pending_key": nil,
	})
}

// MarkRejected 仅当仍为 pending 时更新，返回受影响行数
func (r *ClaimRepository) MarkRejected(ctx context.Context, id, adminID int64, at time.Time) (int64, error) {
	return r.transition(ctx, id, map[string]interface{}{
		"state":       model.ClaimRejected,
		"verified_at": at,
		"verified_by": adminID,
		"pending_key": nil,
	})
}

func (r *ClaimRepository) transition(ctx context.Context, id int64, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentClaim{}).
		Where("id = ? AND state = ?", id, model.ClaimPending).
		Updates(fields)
	return result.RowsAffected, result.Error
}

// PurgeTerminal 删除早于 before 的已结案凭证，pending 不受影响
func (r *ClaimRepository) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("state <> ? AND submitted_at < ?", model.ClaimPending, before).
		Delete(&model.PaymentClaim{})
	return result.RowsAffected, result.Error
}
