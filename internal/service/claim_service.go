package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/metrics"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

var (
	ErrClaimNotFound      = errors.New("付款凭证不存在")
	ErrDuplicateReference = errors.New("交易码已提交或已被使用")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ClaimService struct {
	claimRepo *repository.ClaimRepository
	validate  *validator.Validate
	events    EventPublisher
	metrics   *metrics.Recorder
	clock     clock.Clock
	cfg       *config.Config
}

func NewClaimService(
	claimRepo *repository.ClaimRepository,
	events EventPublisher,
	rec *metrics.Recorder,
	clk clock.Clock,
	cfg *config.Config,
) *ClaimService {
	return &ClaimService{
		claimRepo: claimRepo,
		validate:  NewValidator(&cfg.Payment),
		events:    events,
		metrics:   rec,
		clock:     clk,
		cfg:       cfg,
	}
}

// Submit 校验并写入一条 pending 凭证
func (s *ClaimService) Submit(ctx context.Context, subjectID int64, req *dto.SubmitClaimRequest) (*model.PaymentClaim, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, firstValidationError(err, &s.cfg.Payment)
	}
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if req.Amount.Exponent() < -2 && !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}

	purpose := model.ClaimPurpose(req.Purpose)
	tier, duration, err := parsePlan(req.Tier, req.DurationType, purpose.ActivatesSubscription())
	if err != nil {
		return nil, err
	}

	currency := model.CurrencyContext(req.CurrencyContext)
	if currency == "" {
		currency = model.CurrencyLocal
	}

	phone, _ := NormalizePhone(req.Phone)
	ref := req.ExternalReference

	used, err := s.claimRepo.ExistsVerifiedReference(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("check reference: %w", err)
	}
	if used {
		return nil, ErrDuplicateReference
	}

	pendingKey := model.ClaimPendingKey(subjectID, purpose, ref)
	claim := &model.PaymentClaim{
		SubjectID:         subjectID,
		Amount:            req.Amount,
		CurrencyContext:   currency,
		ExternalReference: ref,
		Phone:             phone,
		Purpose:           purpose,
		Tier:              tier,
		DurationType:      duration,
		State:             model.ClaimPending,
		SubmittedAt:       s.clock.Now(),
		PendingKey:        &pendingKey,
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("create claim: %w", err)
	}

	log.Printf("Claim: subject %d submitted claim %d (%s, ref=%s)", subjectID, claim.ID, purpose, ref)
	s.metrics.ClaimSubmitted(string(purpose))
	publishEvent(ctx, s.events, &pubsub.Event{
		Type:         pubsub.EventClaimSubmitted,
		UserID:       subjectID,
		ClaimID:      claim.ID,
		Tier:         string(tier),
		DurationType: string(duration),
		OccurredAt:   claim.SubmittedAt,
	})

	return claim, nil
}

// parsePlan 订阅类用途必须带合法的 tier 和 duration，其他用途可省略
func parsePlan(rawTier, rawDuration string, required bool) (model.Tier, model.DurationType, error) {
	var tier model.Tier
	var duration model.DurationType

	if strings.TrimSpace(rawTier) != "" || required {
		t, err := model.ParseTier(rawTier)
		if err != nil {
			return "", "", &ValidationError{Field: "tier", Reason: "must be one of starter, basic_pro, prime_plus, vip_elite"}
		}
		tier = t
	}
	if strings.TrimSpace(rawDuration) != "" || required {
		d, err := model.ParseDuration(rawDuration)
		if err != nil {
			return "", "", &ValidationError{Field: "duration_type", Reason: "must be one of 1_week, 2_weeks, 1_month"}
		}
		duration = d
	}
	return tier, duration, nil
}

// List 分页查询凭证，最新的在前
func (s *ClaimService) List(ctx context.Context, filter dto.ClaimFilter) ([]*model.PaymentClaim, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, &ValidationError{Field: "to", Reason: "must not be before from"}
	}
	return s.claimRepo.List(ctx, filter)
}

func (s *ClaimService) Get(ctx context.Context, id int64) (*model.PaymentClaim, error) {
	claim, err := s.claimRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return claim, nil
}

// Purge 管理员显式清理早于 olderThan 的已结案凭证
func (s *ClaimService) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, &ValidationError{Field: "older_than", Reason: "must be positive"}
	}
	before := s.clock.Now().Add(-olderThan)
	n, err := s.claimRepo.PurgeTerminal(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge claims: %w", err)
	}
	log.Printf("Claim: purged %d terminal claims submitted before %s", n, before.Format(time.RFC3339))
	return n, nil
}
