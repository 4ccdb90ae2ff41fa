package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func TestClaimRepository_PendingKeyUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	user := testutil.TestUser(t, db)
	testutil.TestClaim(t, db, user.ID, testutil.WithReference("QK12345678"))

	repo := NewClaimRepository(db)
	key := model.ClaimPendingKey(user.ID, model.PurposeSubscription, "QK12345678")
	dup := &model.PaymentClaim{
		SubjectID:         user.ID,
		ExternalReference: "QK12345678",
		Purpose:           model.PurposeSubscription,
		State:             model.ClaimPending,
		SubmittedAt:       time.Now().UTC(),
		PendingKey:        &key,
	}

	err := repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestClaimRepository_MarkVerified_OnlyFromPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	claim := testutil.TestClaim(t, db, user.ID)
	repo := NewClaimRepository(db)

	rows, err := repo.MarkVerified(ctx, claim.ID, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	found, err := repo.GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimVerified, found.State)
	assert.Nil(t, found.PendingKey)
	require.NotNil(t, found.VerifiedBy)
	assert.Equal(t, int64(1), *found.VerifiedBy)

	rows, err = repo.MarkRejected(ctx, claim.ID, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestClaimRepository_ExistsVerifiedReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	testutil.TestClaim(t, db, user.ID, testutil.WithReference("QKVERIFIED"), testutil.WithClaimState(model.ClaimVerified))
	testutil.TestClaim(t, db, user.ID, testutil.WithReference("QKPENDING1"))

	repo := NewClaimRepository(db)

	exists, err := repo.ExistsVerifiedReference(ctx, "QKVERIFIED")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsVerifiedReference(ctx, "QKPENDING1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClaimRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	u1 := testutil.TestUser(t, db)
	u2 := testutil.TestUser(t, db)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	testutil.TestClaim(t, db, u1.ID, testutil.WithSubmittedAt(base))
	newest := testutil.TestClaim(t, db, u1.ID, testutil.WithSubmittedAt(base.Add(2*time.Hour)))
	testutil.TestClaim(t, db, u1.ID, testutil.WithSubmittedAt(base.Add(time.Hour)), testutil.WithClaimState(model.ClaimRejected))
	testutil.TestClaim(t, db, u2.ID, testutil.WithSubmittedAt(base))

	repo := NewClaimRepository(db)

	t.Run("by subject newest first", func(t *testing.T) {
		claims, total, err := repo.List(ctx, dto.ClaimFilter{SubjectID: &u1.ID, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, claims, 3)
		assert.Equal(t, newest.ID, claims[0].ID)
	})

	t.Run("by state", func(t *testing.T) {
		claims, total, err := repo.List(ctx, dto.ClaimFilter{State: model.ClaimPending, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, claims, 3)
	})

	t.Run("by time range", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		to := base.Add(90 * time.Minute)
		claims, total, err := repo.List(ctx, dto.ClaimFilter{From: &from, To: &to, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, claims, 1)
		assert.Equal(t, model.ClaimRejected, claims[0].State)
	})

	t.Run("paging", func(t *testing.T) {
		claims, total, err := repo.List(ctx, dto.ClaimFilter{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, claims, 1)
	})
}

func TestClaimRepository_PurgeTerminal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	user := testutil.TestUser(t, db)
	old := time.Now().UTC().Add(-100 * 24 * time.Hour)

	testutil.TestClaim(t, db, user.ID, testutil.WithSubmittedAt(old), testutil.WithClaimState(model.ClaimRejected))
	testutil.TestClaim(t, db, user.ID, testutil.WithSubmittedAt(old), testutil.WithClaimState(model.ClaimVerified))
	pending := testutil.TestClaim(t, db, user.ID, testutil.WithSubmittedAt(old))
	recent := testutil.TestClaim(t, db, user.ID, testutil.WithClaimState(model.ClaimRejected))

	repo := NewClaimRepository(db)
	deleted, err := repo.PurgeTerminal(ctx, time.Now().UTC().Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetByID(ctx, pending.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, recent.ID)
	assert.NoError(t, err)
}
