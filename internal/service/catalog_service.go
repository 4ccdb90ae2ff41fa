package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

var ErrPackageNotFound = errors.New("套餐不存在")

type CatalogService struct {
	pkgRepo *repository.TierPackageRepository
	cache   *expirable.LRU[string, *model.TierPackage]
}

func NewCatalogService(pkgRepo *repository.TierPackageRepository, cfg *config.CatalogConfig) *CatalogService {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	return &CatalogService{
		pkgRepo: pkgRepo,
		cache:   expirable.NewLRU[string, *model.TierPackage](cfg.CacheSize, nil, ttl),
	}
}

// Lookup 查询 (tier, duration) 的当前定价，结果按 TTL 缓存
func (s *CatalogService) Lookup(ctx context.Context, tier model.Tier, duration model.DurationType) (*model.TierPackage, error) {
	if !tier.Valid() || !duration.Valid() {
		return nil, ErrPackageNotFound
	}

	key := model.PackageCanonicalKey(tier, duration)
	if pkg, ok := s.cache.Get(key); ok {
		cp := *pkg
		return &cp, nil
	}

	pkg, err := s.pkgRepo.FindActive(ctx, tier, duration)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("lookup package %s: %w", key, err)
	}

	s.cache.Add(key, pkg)
	cp := *pkg
	return &cp, nil
}

// ListActive 列出启用的套餐，duration 为空时返回全部周期
func (s *CatalogService) ListActive(ctx context.Context, duration *model.DurationType) ([]*model.TierPackage, error) {
	if duration != nil && !duration.Valid() {
		return nil, &ValidationError{Field: "duration", Reason: "must be one of 1_week, 2_weeks, 1_month"}
	}
	return s.pkgRepo.ListActive(ctx, duration)
}

// Create 新建定价；启用状态下替换同 (tier, duration) 的旧定价
func (s *CatalogService) Create(ctx context.Context, req *dto.CreatePackageRequest) (*model.TierPackage, error) {
	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		return nil, &ValidationError{Field: "tier", Reason: "must be one of starter, basic_pro, prime_plus, vip_elite"}
	}
	duration, err := model.ParseDuration(req.DurationType)
	if err != nil {
		return nil, &ValidationError{Field: "duration_type", Reason: "must be one of 1_week, 2_weeks, 1_month"}
	}
	if !req.Price.IsPositive() {
		return nil, &ValidationError{Field: "price", Reason: "must be greater than zero"}
	}
	if req.UploadLimit < model.UnlimitedUploads {
		return nil, &ValidationError{Field: "upload_limit", Reason: "must be -1 (unlimited) or a non-negative count"}
	}

	features := req.Features
	if features == nil {
		features = []string{}
	}
	pkg := &model.TierPackage{
		TierName:     tier,
		DurationType: duration,
		Price:        req.Price.Round(2),
		Features:     features,
		UploadLimit:  req.UploadLimit,
		IsActive:     !req.Inactive,
		DisplayOrder: req.DisplayOrder,
	}
	if err := s.pkgRepo.Create(ctx, pkg); err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	s.cache.Purge()
	log.Printf("Catalog: created package %d (%s/%s, price=%s, active=%t)", pkg.ID, tier, duration, pkg.Price, pkg.IsActive)
	return pkg, nil
}

// Deactivate 下线定价，已下线的返回 InvalidStateError
func (s *CatalogService) Deactivate(ctx context.Context, id int64) error {
	rows, err := s.pkgRepo.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivate package %d: %w", id, err)
	}
	if rows == 0 {
		if _, err := s.pkgRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPackageNotFound
			}
			return err
		}
		return &InvalidStateError{Entity: "package", ID: id, State: "inactive", Want: "active"}
	}

	s.cache.Purge()
	log.Printf("Catalog: deactivated package %d", id)
	return nil
}

// Seed 空目录时写入默认价目表，返回写入条数
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	count, err := s.pkgRepo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	created := 0
	for _, req := range DefaultPackages() {
		if _, err := s.Create(ctx, req); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// DefaultPackages 默认价目表（KES）
func DefaultPackages() []*dto.CreatePackageRequest {
	prices := map[model.Tier][3]int64{
		model.TierStarter:   {300, 550, 1000},
		model.TierBasicPro:  {600, 1100, 2000},
		model.TierPrimePlus: {900, 1700, 3000},
		model.TierVIPElite:  {1500, 2800, 5000},
	}
	limits := map[model.Tier]int{
		model.TierStarter:   5,
		model.TierBasicPro:  15,
		model.TierPrimePlus: 40,
		model.TierVIPElite:  model.UnlimitedUploads,
	}
	features := map[model.Tier][]string{
		model.TierStarter:   {"Profile listing", "Contact button"},
		model.TierBasicPro:  {"Profile listing", "Contact button", "Photo gallery"},
		model.TierPrimePlus: {"Profile listing", "Contact button", "Photo gallery", "Priority placement"},
		model.TierVIPElite:  {"Profile listing", "Contact button", "Unlimited gallery", "Top placement", "Verified badge"},
	}

	var reqs []*dto.CreatePackageRequest
	for _, tier := range model.AllTiers {
		for i, duration := range model.AllDurations {
			reqs = append(reqs, &dto.CreatePackageRequest{
				Tier:         string(tier),
				DurationType: string(duration),
				Price:        decimal.NewFromInt(prices[tier][i]),
				Features:     features[tier],
				UploadLimit:  limits[tier],
				DisplayOrder: tier.Rank()*10 + i,
			})
		}
	}
	return reqs
}
