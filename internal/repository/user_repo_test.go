package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func TestUserRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	subject := testutil.TestUser(t, db, testutil.WithPhone("254711000111"))

	found, err := repo.GetByID(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, "254711000111", found.Phone)

	_, err = repo.GetByID(ctx, subject.ID+1000)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_GetByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	a := testutil.TestUser(t, db)
	b := testutil.TestUser(t, db, testutil.WithEmail("b@example.com"))

	byID, err := repo.GetByIDs(ctx, []int64{a.ID, b.ID, 99999})
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, a.Phone, byID[a.ID].Phone)
	require.NotNil(t, byID[b.ID].Email)
	assert.Equal(t, "b@example.com", *byID[b.ID].Email)
	assert.NotContains(t, byID, int64(99999))

	empty, err := repo.GetByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
