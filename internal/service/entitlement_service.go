package service

import (
	"context"
	"errors"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
)

// Quota 剩余上传额度
type Quota struct {
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

type EntitlementService struct {
	catalog      *CatalogService
	ledger       *LedgerService
	defaultLimit int
}

func NewEntitlementService(catalog *CatalogService, ledger *LedgerService, cfg *config.EntitlementConfig) *EntitlementService {
	return &EntitlementService{
		catalog:      catalog,
		ledger:       ledger,
		defaultLimit: cfg.DefaultUploadLimit,
	}
}

func negativeCountError() error {
	return &ValidationError{Field: "media_count", Reason: "must not be negative"}
}

// uploadLimit 查不到套餐时使用保守的默认额度，不会放开为无限
func (s *EntitlementService) uploadLimit(ctx context.Context, tier model.Tier, duration model.DurationType) (int, error) {
	if tier == "" || duration == "" {
		return s.defaultLimit, nil
	}
	pkg, err := s.catalog.Lookup(ctx, tier, duration)
	if err != nil {
		if errors.Is(err, ErrPackageNotFound) {
			return s.defaultLimit, nil
		}
		return 0, err
	}
	return pkg.UploadLimit, nil
}

// CanUploadMedia 当前数量是否还能再上传一个
func (s *EntitlementService) CanUploadMedia(ctx context.Context, currentCount int, tier model.Tier, duration model.DurationType) (bool, error) {
	quota, err := s.RemainingUploads(ctx, currentCount, tier, duration)
	if err != nil {
		return false, err
	}
	return quota.Unlimited || quota.Remaining > 0, nil
}

func (s *EntitlementService) RemainingUploads(ctx context.Context, currentCount int, tier model.Tier, duration model.DurationType) (Quota, error) {
	if currentCount < 0 {
		return Quota{}, negativeCountError()
	}
	limit, err := s.uploadLimit(ctx, tier, duration)
	if err != nil {
		return Quota{}, err
	}
	return quotaFor(limit, currentCount), nil
}

func quotaFor(limit, currentCount int) Quota {
	if limit == model.UnlimitedUploads {
		return Quota{Unlimited: true}
	}
	remaining := limit - currentCount
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Remaining: remaining}
}

// ForSubject 结合订阅状态计算额度，订阅失效时按默认额度处理
func (s *EntitlementService) ForSubject(ctx context.Context, subjectID int64, currentCount int) (*dto.EntitlementInfo, error) {
	if currentCount < 0 {
		return nil, negativeCountError()
	}

	sub, err := s.ledger.GetActive(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	info := &dto.EntitlementInfo{SubjectID: subjectID, MediaCount: currentCount}
	var tier model.Tier
	var duration model.DurationType
	if sub != nil {
		end := sub.EndAt
		info.Tier = sub.Tier
		info.DurationType = sub.DurationType
		info.EndAt = &end
		info.Entitled = s.ledger.IsCurrentlyEntitled(sub)
		if info.Entitled {
			tier, duration = sub.Tier, sub.DurationType
		}
	}

	limit, err := s.uploadLimit(ctx, tier, duration)
	if err != nil {
		return nil, err
	}
	quota := quotaFor(limit, currentCount)

	info.UploadLimit = limit
	info.Unlimited = quota.Unlimited
	info.RemainingUploads = quota.Remaining
	info.CanUpload = quota.Unlimited || quota.Remaining > 0
	return info, nil
}
