package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binrewards/loyalty-engine/catalog"
	"github.com/binrewards/loyalty-engine/ledger"
)

// Both implementations must satisfy the same contract.
func stores(t *testing.T) map[string]catalog.Store {
	t.Helper()

	sq, err := catalog.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]catalog.Store{
		"memory": catalog.NewMemory(),
		"sqlite": sq,
	}
}

func TestSeed(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, catalog.Seed(ctx, s))
			rewards, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, rewards, 5)
			assert.Equal(t, "$5 Eco-Voucher", rewards[0].Title)
			assert.Equal(t, ledger.Points(500), rewards[0].Cost)

			// Seeding twice is a no-op.
			require.NoError(t, catalog.Seed(ctx, s))
			rewards, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, rewards, 5)
		})
	}
}

func TestCRUD(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			created, err := s.Create(ctx, catalog.Reward{
				Title:    "Reusable Bottle",
				Cost:     800,
				Category: catalog.CategoryProduct,
				Icon:     "📦",
			})
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Reusable Bottle", got.Title)

			created.Cost = 900
			require.NoError(t, s.Update(ctx, created))
			got, err = s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, ledger.Points(900), got.Cost)

			require.NoError(t, s.Delete(ctx, created.ID))
			_, err = s.Get(ctx, created.ID)
			assert.ErrorIs(t, err, catalog.ErrRewardNotFound)
		})
	}
}

func TestUnknownIDs(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "nope")
			assert.ErrorIs(t, err, catalog.ErrRewardNotFound)
			assert.ErrorIs(t, s.Update(ctx, catalog.Reward{ID: "nope", Title: "x", Cost: 1}), catalog.ErrRewardNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "nope"), catalog.ErrRewardNotFound)
		})
	}
}
