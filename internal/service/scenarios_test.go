package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func TestScenario_SubmitVerifyActivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)

	claim, err := env.claims.Submit(ctx, user.ID, &dto.SubmitClaimRequest{
		Amount:            decimal.NewFromInt(2000),
		ExternalReference: "QK7H2L9XPA",
		Phone:             "0712345678",
		Purpose:           string(model.PurposeSubscription),
		Tier:              string(model.TierBasicPro),
		DurationType:      string(model.DurationOneMonth),
	})
	require.NoError(t, err)

	result, err := env.verification.Verify(ctx, claim.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, sub.EndAt.Equal(testNow.Add(30*day)))
	assert.True(t, env.ledger.IsCurrentlyEntitled(sub))
	assert.True(t, sub.AmountPaid.Equal(decimal.NewFromInt(2000)))
}

func TestScenario_UpgradeQuoteTenDaysLeft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	testutil.TestPackage(t, env.db, model.TierBasicPro, model.DurationOneMonth, "2000", 15)
	testutil.TestPackage(t, env.db, model.TierPrimePlus, model.DurationOneMonth, "2500", 40)
	env.subscriptionEndingIn(t, user.ID, 10*day, testutil.WithTier(model.TierBasicPro, model.DurationOneMonth))

	quote, err := env.ledger.QuoteUpgrade(ctx, user.ID, string(model.TierPrimePlus))
	require.NoError(t, err)

	assert.Equal(t, 10, quote.RemainingDays)
	assert.Equal(t, "666.67", quote.CreditAmount.StringFixed(2))
	assert.Equal(t, "1833.33", quote.UpgradeCost.StringFixed(2))
}

func TestScenario_ExpiredAnHourAgo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	sub := env.subscriptionEndingIn(t, user.ID, -time.Hour)

	assert.False(t, env.ledger.IsCurrentlyEntitled(sub))

	report, err := env.reminders.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)

	var logs []model.ReminderLog
	require.NoError(t, env.db.Where("subscription_id = ?", sub.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, model.ReminderExpiryDay, logs[0].ReminderType)
}

func TestScenario_RejectLeavesLedgerUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := testutil.TestUser(t, env.db)
	existing := env.subscriptionEndingIn(t, user.ID, 5*day)
	claim := testutil.TestClaim(t, env.db, user.ID, testutil.WithPlan(model.TierVIPElite, model.DurationOneMonth))

	require.NoError(t, env.verification.Reject(ctx, claim.ID, 1))

	sub, err := env.ledger.GetActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.Tier, sub.Tier)
	assert.True(t, existing.EndAt.Equal(sub.EndAt))
	assert.True(t, existing.UpdatedAt.Equal(sub.UpdatedAt))
}
