package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/pubsub"
	"github.com/qs3c/listing_sub_server/internal/pkg/queue"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func TestVerificationService_Verify_ActivatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	user := testutil.TestUser(t, env.db)

	claim, err := env.claims.Submit(ctx, user.ID, validClaimRequest())
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)
	result, err := env.verification.Verify(ctx, claim.ID, admin.ID)
	require.NoError(t, err)

	verifiedAt := testNow.Add(2 * time.Hour)
	assert.Equal(t, model.ClaimVerified, result.Claim.State)
	require.NotNil(t, result.Subscription)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, model.TierPrimePlus, sub.Tier)
	assert.Equal(t, model.DurationOneMonth, sub.DurationType)
	assert.True(t, sub.IsActive)
	assert.WithinDuration(t, verifiedAt, sub.StartAt, time.Second)
	assert.WithinDuration(t, verifiedAt.Add(30*day), sub.EndAt, time.Second)
	assert.True(t, sub.AmountPaid.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, sub.FundingPaymentClaimID)
	assert.Equal(t, claim.ID, *sub.FundingPaymentClaimID)
	assert.True(t, env.ledger.IsCurrentlyEntitled(sub))

	stored, err := env.claims.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimVerified, stored.State)
	require.NotNil(t, stored.VerifiedBy)
	assert.Equal(t, admin.ID, *stored.VerifiedBy)
	require.NotNil(t, stored.VerifiedAt)
	assert.WithinDuration(t, verifiedAt, *stored.VerifiedAt, time.Second)

	assert.Contains(t, env.events.types(), pubsub.EventClaimVerified)
	assert.Contains(t, env.events.types(), pubsub.EventSubscriptionActivated)
	require.Len(t, env.notices.msgs, 1)
	assert.Equal(t, queue.NoticeActivation, env.notices.msgs[0].Kind)
	assert.Equal(t, string(model.TierPrimePlus), env.notices.msgs[0].Tier)
}

func TestVerificationService_Verify_FeaturedListingLeavesLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	claim := testutil.TestClaim(t, env.db, user.ID,
		testutil.WithPurpose(model.PurposeFeaturedListing),
		testutil.WithPlan("", ""))

	result, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, result.Subscription)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.NotContains(t, env.events.types(), pubsub.EventSubscriptionActivated)
}

func TestVerificationService_Verify_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.verification.Verify(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrClaimNotFound)
}

func TestVerificationService_Verify_AlreadyDecided(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	claim := testutil.TestClaim(t, env.db, user.ID)

	_, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)

	_, err = env.verification.Verify(ctx, claim.ID, 1)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, string(model.ClaimVerified), serr.State)

	err = env.verification.Reject(ctx, claim.ID, 1)
	assert.ErrorAs(t, err, &serr)
}

func TestVerificationService_Reject_TwiceKeepsFirstDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.TestUser(t, env.db, testutil.WithRole(model.RoleAdmin))
	user := testutil.TestUser(t, env.db)
	claim := testutil.TestClaim(t, env.db, user.ID)

	require.NoError(t, env.verification.Reject(ctx, claim.ID, admin.ID))
	first, err := env.claims.Get(ctx, claim.ID)
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	err = env.verification.Reject(ctx, claim.ID, admin.ID+1)
	var serr *InvalidStateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, string(model.ClaimRejected), serr.State)

	second, err := env.claims.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimRejected, second.State)
	assert.Equal(t, *first.VerifiedBy, *second.VerifiedBy)
	assert.True(t, first.VerifiedAt.Equal(*second.VerifiedAt))

	// 拒绝不产生订阅
	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	require.Len(t, env.notices.msgs, 1)
	assert.Equal(t, queue.NoticeRejection, env.notices.msgs[0].Kind)
}

func TestVerificationService_Verify_RenewalReplacesWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	existing := env.subscriptionEndingIn(t, user.ID, 10*day)

	claim := testutil.TestClaim(t, env.db, user.ID, testutil.WithPlan(model.TierPrimePlus, model.DurationTwoWeeks))
	_, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&model.Subscription{}).Where("subject_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, sub.ID)
	assert.Equal(t, model.DurationTwoWeeks, sub.DurationType)
	// 从审核时刻重新计算，不在旧到期时间上叠加
	assert.WithinDuration(t, testNow.Add(14*day), sub.EndAt, time.Second)
}

func TestVerificationService_Verify_UpgradeStartsFreshWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	env.subscriptionEndingIn(t, user.ID, 10*day)

	claim := testutil.TestClaim(t, env.db, user.ID,
		testutil.WithPurpose(model.PurposeUpgrade),
		testutil.WithPlan(model.TierVIPElite, model.DurationOneMonth))
	_, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierVIPElite, sub.Tier)
	assert.WithinDuration(t, testNow.Add(30*day), sub.EndAt, time.Second)
}

func TestVerificationService_Verify_StoreFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	claim := testutil.TestClaim(t, env.db, user.ID)

	failing := true
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_subscriptions", func(tx *gorm.DB) {
		if failing && tx.Statement.Table == "subscriptions" {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = env.verification.Verify(ctx, claim.ID, 1)
	var incomplete *VerificationIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, claim.ID, incomplete.ClaimID)

	stored, err := env.claims.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimPending, stored.State)
	assert.Nil(t, stored.VerifiedAt)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Empty(t, env.notices.msgs)

	// 故障恢复后重试成功
	failing = false
	result, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)
	assert.NotNil(t, result.Subscription)
}
