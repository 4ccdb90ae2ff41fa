package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
)

type TierPackageRepository struct {
	db *gorm.DB
}

func NewTierPackageRepository(db *gorm.DB) *TierPackageRepository {
	return &TierPackageRepository{db: db}
}

func (r *TierPackageRepository) GetByID(ctx context.Context, id int64) (*model.TierPackage, error) {
	var pkg model.TierPackage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// FindActive 查询 (tier, duration) 当前启用的定价
func (r *TierPackageRepository) FindActive(ctx context.Context, tier model.Tier, duration model.DurationType) (*model.TierPackage, error) {
	var pkg model.TierPackage
	err := r.db.WithContext(ctx).
		Where("tier_name = ? AND duration_type = ? AND is_active = ?", tier, duration, true).
		Order("id DESC").
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListActive 按 display_order 升序列出启用的套餐，duration 为空时返回全部周期
func (r *TierPackageRepository) ListActive(ctx context.Context, duration *model.DurationType) ([]*model.TierPackage, error) {
	var pkgs []*model.TierPackage
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if duration != nil {
		query = query.Where("duration_type = ?", *duration)
	}
	err := query.Order("display_order ASC, id ASC").Find(&pkgs).Error
	return pkgs, err
}

// Create 写入新定价；启用状态下先下线同 (tier, duration) 的旧定价
func (r *TierPackageRepository) Create(ctx context.Context, pkg *model.TierPackage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pkg.IsActive {
			key := model.PackageCanonicalKey(pkg.TierName, pkg.DurationType)
			err := tx.Model(&model.TierPackage{}).
				Where("canonical_key = ?", key).
				Updates(map[string]interface{}{"is_active": false, "canonical_key": nil}).Error
			if err != nil {
				return err
			}
			pkg.CanonicalKey = &key
		} else {
			pkg.CanonicalKey = nil
		}
		return tx.Create(pkg).Error
	})
}

// Deactivate 下线定价，返回受影响行数
func (r *TierPackageRepository) Deactivate(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.TierPackage{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "canonical_key": nil})
	return result.RowsAffected, result.Error
}

func (r *TierPackageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TierPackage{}).Count(&count).Error
	return count, err
}
