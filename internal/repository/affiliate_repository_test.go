package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdurrahmanaziz/eksporyuk-sub039/internal/model"
)

func seedAffiliate(t *testing.T, db *testDB, code string, active bool) *AffiliateProfileEntity {
	t.Helper()
	entity := &AffiliateProfileEntity{
		UserID:         time.Now().UnixNano(),
		Code:           code,
		Tier:           1,
		CommissionRate: 20,
		IsActive:       active,
	}
	require.NoError(t, db.Write(context.Background()).Create(entity).Error)
	return entity
}

func TestAffiliateRepository_FindActiveByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAffiliateRepository(db.DB)
	ctx := context.Background()

	active := seedAffiliate(t, db, "BUDI20", true)
	seedAffiliate(t, db, "OLDCODE", false)

	t.Run("active code resolves", func(t *testing.T) {
		got, err := repo.FindActiveByCode(ctx, "BUDI20")
		require.NoError(t, err)
		assert.Equal(t, active.ID, got.ID)
		assert.Equal(t, int64(20), got.CommissionRate)
	})

	t.Run("inactive code does not resolve", func(t *testing.T) {
		_, err := repo.FindActiveByCode(ctx, "OLDCODE")
		assert.ErrorIs(t, err, ErrAffiliateNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := repo.FindActiveByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, ErrAffiliateNotFound)
	})
}

func TestAffiliateRepository_CreateConversion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAffiliateRepository(db.DB)
	ctx := context.Background()

	profile := seedAffiliate(t, db, "BUDI20", true)

	conv := &model.AffiliateConversion{
		AffiliateID:      profile.ID,
		TransactionID:    101,
		CommissionAmount: 30_000,
		CommissionRate:   30,
		CommissionType:   model.CommissionTypePercentage,
	}

	created, isNew, err := repo.CreateConversion(ctx, conv)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, created.ID)

	t.Run("replay returns the existing row", func(t *testing.T) {
		again, isNew, err := repo.CreateConversion(ctx, &model.AffiliateConversion{
			AffiliateID:      profile.ID,
			TransactionID:    101,
			CommissionAmount: 99_999,
			CommissionRate:   30,
			CommissionType:   model.CommissionTypePercentage,
		})
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, created.ID, again.ID)
		assert.Equal(t, int64(30_000), again.CommissionAmount)
	})

	t.Run("lookup by transaction id", func(t *testing.T) {
		got, err := repo.GetConversionByTransactionID(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = repo.GetConversionByTransactionID(ctx, 999)
		assert.ErrorIs(t, err, ErrConversionNotFound)
	})
}

func TestAffiliateRepository_Aggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAffiliateRepository(db.DB)
	ctx := context.Background()

	profile := seedAffiliate(t, db, "SITI15", true)

	require.NoError(t, repo.IncrementAggregates(ctx, profile.ID, 30_000, 1))
	require.NoError(t, repo.IncrementAggregates(ctx, profile.ID, 15_000, 1))
	require.NoError(t, repo.IncrementClicks(ctx, profile.ID))
	require.NoError(t, repo.IncrementClicks(ctx, profile.ID))
	require.NoError(t, repo.IncrementClicks(ctx, profile.ID))

	got, err := repo.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45_000), got.TotalEarnings)
	assert.Equal(t, int64(2), got.TotalConversions)
	assert.Equal(t, int64(3), got.TotalClicks)

	t.Run("missing profile", func(t *testing.T) {
		assert.ErrorIs(t, repo.IncrementAggregates(ctx, 999, 100, 1), ErrAffiliateNotFound)
		assert.ErrorIs(t, repo.IncrementClicks(ctx, 999), ErrAffiliateNotFound)
	})
}

func TestAffiliateRepository_PaidOutMarking(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAffiliateRepository(db.DB)
	ctx := context.Background()

	profile := seedAffiliate(t, db, "RINA10", true)

	var ids []int64
	for i := int64(1); i <= 3; i++ {
		conv, _, err := repo.CreateConversion(ctx, &model.AffiliateConversion{
			AffiliateID:      profile.ID,
			TransactionID:    200 + i,
			CommissionAmount: 10_000,
			CommissionRate:   10,
			CommissionType:   model.CommissionTypePercentage,
		})
		require.NoError(t, err)
		ids = append(ids, conv.ID)
	}

	t.Run("unpaid list is oldest first", func(t *testing.T) {
		unpaid, err := repo.ListUnpaidOldest(ctx, profile.ID, 10)
		require.NoError(t, err)
		require.Len(t, unpaid, 3)
		assert.Equal(t, ids[0], unpaid[0].ID)
		assert.Equal(t, ids[2], unpaid[2].ID)
	})

	t.Run("marking flips only unpaid rows", func(t *testing.T) {
		n, err := repo.MarkConversionsPaid(ctx, ids[:2], time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		// replayed pass over the same ids touches nothing
		n, err = repo.MarkConversionsPaid(ctx, ids[:2], time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		unpaid, err := repo.ListUnpaidOldest(ctx, profile.ID, 10)
		require.NoError(t, err)
		require.Len(t, unpaid, 1)
		assert.Equal(t, ids[2], unpaid[0].ID)
	})

	t.Run("empty id slice is a no-op", func(t *testing.T) {
		n, err := repo.MarkConversionsPaid(ctx, nil, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}
