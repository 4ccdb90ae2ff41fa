package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

var (
	ErrSubscriptionNotFound = errors.New("订阅不存在")
	ErrSubjectNotFound      = errors.New("用户不存在")
	ErrNoSubscription       = errors.New("当前没有订阅，无法升级")
	ErrNotAnUpgrade         = errors.New("目标等级必须高于当前等级")
)

type LedgerService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	catalog  *CatalogService
	events   EventPublisher
	clock    clock.Clock
}

func NewLedgerService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	catalog *CatalogService,
	events EventPublisher,
	clk clock.Clock,
) *LedgerService {
	return &LedgerService{
		subRepo:  subRepo,
		userRepo: userRepo,
		catalog:  catalog,
		events:   events,
		clock:    clk,
	}
}

// GetActive 返回 subject 的订阅行，没有时返回 nil, nil
func (s *LedgerService) GetActive(ctx context.Context, subjectID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// Upsert 整行写入 subject 的订阅
func (s *LedgerService) Upsert(ctx context.Context, in dto.UpsertSubscriptionInput) (*model.Subscription, error) {
	sub, err := s.buildSubscription(in)
	if err != nil {
		return nil, err
	}
	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	log.Printf("Ledger: subject %d now %s/%s until %s", sub.SubjectID, sub.Tier, sub.DurationType, sub.EndAt.Format("2006-01-02 15:04"))
	return sub, nil
}

// upsertTx 在审核事务内写入订阅
func (s *LedgerService) upsertTx(ctx context.Context, tx *gorm.DB, in dto.UpsertSubscriptionInput) (*model.Subscription, error) {
	sub, err := s.buildSubscription(in)
	if err != nil {
		return nil, err
	}
	if err := s.subRepo.WithTx(tx).Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// buildSubscription 校验输入并计算 end_at = start_at + 周期天数
func (s *LedgerService) buildSubscription(in dto.UpsertSubscriptionInput) (*model.Subscription, error) {
	if !in.Tier.Valid() {
		return nil, &ValidationError{Field: "tier", Reason: "unknown tier"}
	}
	if !in.DurationType.Valid() {
		return nil, &ValidationError{Field: "duration_type", Reason: "unknown duration type"}
	}
	if in.AmountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Reason: "must not be negative"}
	}

	start := in.StartAt
	if start.IsZero() {
		start = s.clock.Now()
	}
	start = start.UTC()
	end := model.PeriodEnd(start, in.DurationType)
	if in.EndAt != nil && !in.EndAt.Equal(end) {
		return nil, &ValidationError{
			Field:  "end_at",
			Reason: fmt.Sprintf("must equal start_at + %d days", in.DurationType.Days()),
		}
	}

	return &model.Subscription{
		SubjectID:             in.SubjectID,
		Tier:                  in.Tier,
		DurationType:          in.DurationType,
		StartAt:               start,
		EndAt:                 end,
		IsActive:              true,
		AmountPaid:            in.AmountPaid.Round(2),
		FundingPaymentClaimID: in.FundingClaimID,
	}, nil
}

// AdminEdit 管理员手动设置订阅，等同一次不关联凭证的 upsert
func (s *LedgerService) AdminEdit(ctx context.Context, subjectID int64, req *dto.AdminSubscriptionRequest) (*model.Subscription, error) {
	if _, err := s.userRepo.GetByID(ctx, subjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	tier, duration, err := parsePlan(req.Tier, req.DurationType, true)
	if err != nil {
		return nil, err
	}

	in := dto.UpsertSubscriptionInput{
		SubjectID:    subjectID,
		Tier:         tier,
		DurationType: duration,
		AmountPaid:   req.AmountPaid,
	}
	if req.StartAt != nil {
		in.StartAt = *req.StartAt
	}

	sub, err := s.Upsert(ctx, in)
	if err != nil {
		return nil, err
	}
	end := sub.EndAt
	publishEvent(ctx, s.events, &pubsub.Event{
		Type:           pubsub.EventSubscriptionActivated,
		UserID:         subjectID,
		SubscriptionID: sub.ID,
		Tier:           string(sub.Tier),
		DurationType:   string(sub.DurationType),
		EndAt:          &end,
	})
	return sub, nil
}

// SetActiveFlag 管理员启用/停用，与到期时间无关
func (s *LedgerService) SetActiveFlag(ctx context.Context, subjectID int64, active bool) error {
	rows, err := s.subRepo.SetActive(ctx, subjectID, active)
	if err != nil {
		return fmt.Errorf("set active flag: %w", err)
	}
	if rows == 0 {
		return ErrSubscriptionNotFound
	}

	evtType := pubsub.EventSubscriptionSuspended
	if active {
		evtType = pubsub.EventSubscriptionReinstated
	}
	log.Printf("Ledger: subject %d is_active=%t", subjectID, active)
	publishEvent(ctx, s.events, &pubsub.Event{Type: evtType, UserID: subjectID})
	return nil
}

// IsCurrentlyEntitled 每次调用都按当前时间重新计算
func (s *LedgerService) IsCurrentlyEntitled(sub *model.Subscription) bool {
	return sub.EntitledAt(s.clock.Now())
}

// Status 订阅快照
func (s *LedgerService) Status(ctx context.Context, subjectID int64) (*dto.SubscriptionStatus, error) {
	sub, err := s.GetActive(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	status := &dto.SubscriptionStatus{SubjectID: subjectID, Subscription: sub}
	if sub == nil {
		return status, nil
	}
	status.Entitled = sub.EntitledAt(now)
	status.Expired = !now.Before(sub.EndAt)
	status.RemainingDays = RemainingDays(sub, now)
	return status, nil
}

// QuoteUpgrade 计算升级到更高等级的差价，周期沿用当前订阅
func (s *LedgerService) QuoteUpgrade(ctx context.Context, subjectID int64, rawTarget string) (*dto.UpgradeQuote, error) {
	target, err := model.ParseTier(rawTarget)
	if err != nil {
		return nil, &ValidationError{Field: "tier", Reason: "must be one of starter, basic_pro, prime_plus, vip_elite"}
	}

	sub, err := s.GetActive(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	if target.Rank() <= sub.Tier.Rank() {
		return nil, ErrNotAnUpgrade
	}

	currentPrice := sub.AmountPaid
	current, err := s.catalog.Lookup(ctx, sub.Tier, sub.DurationType)
	switch {
	case err == nil:
		currentPrice = current.Price
	case !errors.Is(err, ErrPackageNotFound):
		return nil, err
	}

	targetPkg, err := s.catalog.Lookup(ctx, target, sub.DurationType)
	if err != nil {
		return nil, err
	}

	quote := ComputeUpgradeCost(sub, currentPrice, targetPkg.Price, s.clock.Now())
	quote.TargetTier = target
	return &quote, nil
}
