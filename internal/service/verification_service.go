package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/alert"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/metrics"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
	"github.com/qs3c/listing_sub_server/internal/repository"
)

// errClaimNotPending 条件更新未命中，说明已被并发处理
var errClaimNotPending = errors.New("claim no longer pending")

type VerificationService struct {
	db        *gorm.DB
	claimRepo *repository.ClaimRepository
	ledger    *LedgerService
	events    EventPublisher
	notices   NoticeQueue
	metrics   *metrics.Recorder
	clock     clock.Clock
}

func NewVerificationService(
	db *gorm.DB,
	claimRepo *repository.ClaimRepository,
	ledger *LedgerService,
	events EventPublisher,
	notices NoticeQueue,
	rec *metrics.Recorder,
	clk clock.Clock,
) *VerificationService {
	return &VerificationService{
		db:        db,
		claimRepo: claimRepo,
		ledger:    ledger,
		events:    events,
		notices:   notices,
		metrics:   rec,
		clock:     clk,
	}
}

// Verify 审核通过：凭证状态与订阅写入在同一事务内完成
func (s *VerificationService) Verify(ctx context.Context, claimID, adminID int64) (*dto.VerificationResult, error) {
	claim, err := s.loadPending(ctx, claimID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var sub *model.Subscription

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.claimRepo.WithTx(tx).MarkVerified(ctx, claimID, adminID, now)
		if err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
		if rows == 0 {
			return errClaimNotPending
		}

		if !claim.Purpose.ActivatesSubscription() {
			return nil
		}

		sub, err = s.ledger.upsertTx(ctx, tx, dto.UpsertSubscriptionInput{
			SubjectID:      claim.SubjectID,
			Tier:           claim.Tier,
			DurationType:   claim.DurationType,
			StartAt:        now,
			AmountPaid:     claim.Amount,
			FundingClaimID: &claim.ID,
		})
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		return nil
	})
	if errors.Is(err, errClaimNotPending) {
		return nil, s.notPendingError(ctx, claimID)
	}
	if err != nil {
		s.metrics.VerificationIncomplete()
		alert.Report("verification", err, map[string]string{
			"claim_id":   strconv.FormatInt(claimID, 10),
			"subject_id": strconv.FormatInt(claim.SubjectID, 10),
		})
		return nil, &VerificationIncompleteError{ClaimID: claimID, Err: err}
	}

	claim.State = model.ClaimVerified
	claim.VerifiedAt = &now
	claim.VerifiedBy = &adminID
	claim.PendingKey = nil

	log.Printf("Verification: admin %d verified claim %d for subject %d", adminID, claimID, claim.SubjectID)
	s.metrics.ClaimDecided(string(model.ClaimVerified))
	s.afterVerify(ctx, claim, sub)

	return &dto.VerificationResult{Claim: claim, Subscription: sub}, nil
}

// afterVerify 事务提交后的通知，失败不回滚
func (s *VerificationService) afterVerify(ctx context.Context, claim *model.PaymentClaim, sub *model.Subscription) {
	publishEvent(ctx, s.events, &pubsub.Event{
		Type:       pubsub.EventClaimVerified,
		UserID:     claim.SubjectID,
		ClaimID:    claim.ID,
		OccurredAt: *claim.VerifiedAt,
	})

	notice := &queue.NoticeMessage{
		Kind:      queue.NoticeActivation,
		SubjectID: claim.SubjectID,
		ClaimID:   claim.ID,
	}
	if sub != nil {
		end := sub.EndAt
		publishEvent(ctx, s.events, &pubsub.Event{
			Type:           pubsub.EventSubscriptionActivated,
			UserID:         sub.SubjectID,
			ClaimID:        claim.ID,
			SubscriptionID: sub.ID,
			Tier:           string(sub.Tier),
			DurationType:   string(sub.DurationType),
			EndAt:          &end,
			OccurredAt:     sub.StartAt,
		})
		notice.Tier = string(sub.Tier)
		notice.DurationType = string(sub.DurationType)
		notice.EndAt = &end
	}
	s.enqueue(ctx, notice)
}

// Reject 仅 pending 可拒绝，不影响订阅
func (s *VerificationService) Reject(ctx context.Context, claimID, adminID int64) error {
	claim, err := s.loadPending(ctx, claimID)
	if err != nil {
		return err
	}

	rows, err := s.claimRepo.MarkRejected(ctx, claimID, adminID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if rows == 0 {
		return s.notPendingError(ctx, claimID)
	}

	log.Printf("Verification: admin %d rejected claim %d for subject %d", adminID, claimID, claim.SubjectID)
	s.metrics.ClaimDecided(string(model.ClaimRejected))
	publishEvent(ctx, s.events, &pubsub.Event{
		Type:    pubsub.EventClaimRejected,
		UserID:  claim.SubjectID,
		ClaimID: claimID,
	})
	s.enqueue(ctx, &queue.NoticeMessage{
		Kind:      queue.NoticeRejection,
		SubjectID: claim.SubjectID,
		ClaimID:   claimID,
	})
	return nil
}

func (s *VerificationService) loadPending(ctx context.Context, claimID int64) (*model.PaymentClaim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if !claim.IsPending() {
		return nil, claimStateError(claim)
	}
	return claim, nil
}

// notPendingError 并发审核落败时读取最新状态
func (s *VerificationService) notPendingError(ctx context.Context, claimID int64) error {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("get claim: %w", err)
	}
	return claimStateError(claim)
}

func claimStateError(claim *model.PaymentClaim) error {
	return &InvalidStateError{
		Entity: "payment_claim",
		ID:     claim.ID,
		State:  string(claim.State),
		Want:   string(model.ClaimPending),
	}
}

func (s *VerificationService) enqueue(ctx context.Context, msg *queue.NoticeMessage) {
	if s.notices == nil {
		return
	}
	if err := s.notices.Push(ctx, msg); err != nil {
		log.Printf("Verification: enqueue %s notice for claim %d failed: %v", msg.Kind, msg.ClaimID, err)
	}
}
