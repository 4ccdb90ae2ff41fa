package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := nextSeq()
	email := fmt.Sprintf("test_%d@example.com", n)
	user := &model.User{
		DisplayName: fmt.Sprintf("testuser_%d", n),
		Phone:       fmt.Sprintf("2547%08d", n),
		Email:       &email,
		Role:        model.RoleSubject,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithPhone 设置手机号
func WithPhone(phone string) func(*model.User) {
	return func(u *model.User) {
		u.Phone = phone
	}
}

// WithEmail 设置邮箱，空串表示没有邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		if email == "" {
			u.Email = nil
			return
		}
		u.Email = &email
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestPackage 创建启用中的套餐
func TestPackage(t *testing.T, db *gorm.DB, tier model.Tier, duration model.DurationType, price string, uploadLimit int) *model.TierPackage {
	t.Helper()

	key := model.PackageCanonicalKey(tier, duration)
	pkg := &model.TierPackage{
		TierName:     tier,
		DurationType: duration,
		Price:        decimal.RequireFromString(price),
		Features:     []string{"listing"},
		UploadLimit:  uploadLimit,
		IsActive:     true,
		DisplayOrder: tier.Rank(),
		CanonicalKey: &key,
	}

	if err := db.Create(pkg).Error; err != nil {
		t.Fatalf("Failed to create test package: %v", err)
	}

	return pkg
}

// TestClaim 创建待审核的付款凭证
func TestClaim(t *testing.T, db *gorm.DB, subjectID int64, opts ...func(*model.PaymentClaim)) *model.PaymentClaim {
	t.Helper()

	claim := &model.PaymentClaim{
		SubjectID:         subjectID,
		Amount:            decimal.NewFromInt(2000),
		CurrencyContext:   model.CurrencyLocal,
		ExternalReference: fmt.Sprintf("QK%08d", nextSeq()),
		Phone:             "254712345678",
		Purpose:           model.PurposeSubscription,
		Tier:              model.TierPrimePlus,
		DurationType:      model.DurationOneMonth,
		State:             model.ClaimPending,
		SubmittedAt:       time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(claim)
	}

	if claim.State == model.ClaimPending {
		key := model.ClaimPendingKey(claim.SubjectID, claim.Purpose, claim.ExternalReference)
		claim.PendingKey = &key
	}

	if err := db.Create(claim).Error; err != nil {
		t.Fatalf("Failed to create test claim: %v", err)
	}

	return claim
}

// WithPurpose 设置付款用途
func WithPurpose(purpose model.ClaimPurpose) func(*model.PaymentClaim) {
	return func(c *model.PaymentClaim) {
		c.Purpose = purpose
	}
}

// WithReference 设置交易码
func WithReference(ref string) func(*model.PaymentClaim) {
	return func(c *model.PaymentClaim) {
		c.ExternalReference = ref
	}
}

// WithClaimState 设置审核状态
func WithClaimState(state model.ClaimState) func(*model.PaymentClaim) {
	return func(c *model.PaymentClaim) {
		c.State = state
	}
}

// WithPlan 设置套餐
func WithPlan(tier model.Tier, duration model.DurationType) func(*model.PaymentClaim) {
	return func(c *model.PaymentClaim) {
		c.Tier = tier
		c.DurationType = duration
	}
}

// WithSubmittedAt 设置提交时间
func WithSubmittedAt(at time.Time) func(*model.PaymentClaim) {
	return func(c *model.PaymentClaim) {
		c.SubmittedAt = at
	}
}

// TestSubscription 创建订阅，默认从 now 开始的一个月 prime_plus
func TestSubscription(t *testing.T, db *gorm.DB, subjectID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now().UTC()
	sub := &model.Subscription{
		SubjectID:    subjectID,
		Tier:         model.TierPrimePlus,
		DurationType: model.DurationOneMonth,
		StartAt:      now,
		EndAt:        model.PeriodEnd(now, model.DurationOneMonth),
		IsActive:     true,
		AmountPaid:   decimal.NewFromInt(2000),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithWindow 设置订阅起止时间
func WithWindow(start, end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.StartAt = start
		s.EndAt = end
	}
}

// WithTier 设置订阅等级和周期
func WithTier(tier model.Tier, duration model.DurationType) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Tier = tier
		s.DurationType = duration
	}
}

// WithActive 设置管理员启用标记
func WithActive(active bool) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.IsActive = active
	}
}
