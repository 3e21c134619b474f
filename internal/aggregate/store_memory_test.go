package aggregate

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

func claim(n int) domain.ClaimID {
	return domain.ClaimID{Cedant: "CED-001", Number: domain.ClaimNumber(fmt.Sprintf("CLM-%04d", n))}
}

func TestInMemoryStore_Apply(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := domain.UWYearKey("CED-001", 2024)

	snap, err := store.Apply(ctx, key, claim(1), domain.NewMoney(10000, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), snap.Total.MinorUnits)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, 1, snap.ClaimCount)

	snap, err = store.Apply(ctx, key, claim(2), domain.NewMoney(5000, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(15000), snap.Total.MinorUnits)
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, 2, snap.ClaimCount)

	t.Run("rejects zero claim identity", func(t *testing.T) {
		_, err := store.Apply(ctx, key, domain.ClaimID{}, domain.NewMoney(1, "USD"))
		require.Error(t, err)
	})

	t.Run("rejects currency mismatch", func(t *testing.T) {
		_, err := store.Apply(ctx, key, claim(3), domain.NewMoney(1, "EUR"))
		var mismatch *CurrencyMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "EUR", mismatch.Got)
		assert.Equal(t, "USD", mismatch.Want)
	})
}

func TestInMemoryStore_Idempotence(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := domain.ParentKey("P-77")

	first, err := store.Apply(ctx, key, claim(1), domain.NewMoney(10000, "USD"))
	require.NoError(t, err)

	// Re-delivery of the same claim must change nothing, including version.
	second, err := store.Apply(ctx, key, claim(1), domain.NewMoney(10000, "USD"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Total.MinorUnits)
	assert.Equal(t, 1, got.ClaimCount)
}

func TestInMemoryStore_Get_Missing(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), domain.ParentKey("nope"))
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

// The aggregation invariant: the sum for a key equals the sum of all distinct
// accepted claims sharing that key, independent of arrival order and of
// re-delivery.
func TestInMemoryStore_OrderIndependenceAndRedelivery(t *testing.T) {
	ctx := context.Background()
	key := domain.UWYearKey("CED-001", 2024)

	amounts := make(map[int]int64)
	var want int64
	for i := range 50 {
		amounts[i] = int64(100 + i*7)
		want += amounts[i]
	}

	for run := range 5 {
		store := NewInMemoryStore()

		order := rand.New(rand.NewSource(int64(run))).Perm(50)
		for _, i := range order {
			_, err := store.Apply(ctx, key, claim(i), domain.NewMoney(amounts[i], "USD"))
			require.NoError(t, err)
			// Every third claim is delivered twice.
			if i%3 == 0 {
				_, err = store.Apply(ctx, key, claim(i), domain.NewMoney(amounts[i], "USD"))
				require.NoError(t, err)
			}
		}

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got.Total.MinorUnits, "run %d: sum must be order- and redelivery-independent", run)
		assert.Equal(t, 50, got.ClaimCount)
	}
}

func TestInMemoryStore_ConcurrentDistinctClaims(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := domain.ParentKey("P-1")

	const goroutines = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range goroutines {
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, key, claim(i), domain.NewMoney(100, "USD"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*100), got.Total.MinorUnits, "no update may be lost")
	assert.Equal(t, goroutines, got.ClaimCount)
	assert.Equal(t, int64(goroutines), got.Version)
}

func TestInMemoryStore_ConcurrentRedelivery(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	key := domain.ParentKey("P-2")

	// All goroutines deliver the same claim; exactly one application may win.
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Apply(ctx, key, claim(1), domain.NewMoney(999, "USD"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Total.MinorUnits)
	assert.Equal(t, 1, got.ClaimCount)
}
