package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
)

func record(number string, parent domain.ParentID, minor int64) models.ClaimRecord {
	return models.ClaimRecord{
		ID:               domain.ClaimID{Cedant: "CED-001", Number: domain.ClaimNumber(number)},
		ParentID:         parent,
		UnderwritingYear: 2024,
		PaidLoss:         domain.NewMoney(minor, "USD"),
	}
}

func TestAggregator_AppliesBothKeys(t *testing.T) {
	store := NewInMemoryStore()
	agg := NewAggregator(store, nil)
	ctx := context.Background()

	res, err := agg.Apply(ctx, record("CLM-1", "P-77", 10000))
	require.NoError(t, err)
	assert.True(t, res.HasParent)
	assert.Equal(t, int64(10000), res.YearSnapshot.Total.MinorUnits)
	assert.Equal(t, int64(10000), res.ParentSnapshot.Total.MinorUnits)

	// Second claim under the same parent and year accumulates in both spaces.
	res, err = agg.Apply(ctx, record("CLM-2", "P-77", 2500))
	require.NoError(t, err)
	assert.Equal(t, int64(12500), res.YearSnapshot.Total.MinorUnits)
	assert.Equal(t, int64(12500), res.ParentSnapshot.Total.MinorUnits)
}

func TestAggregator_NoParentID(t *testing.T) {
	agg := NewAggregator(NewInMemoryStore(), nil)

	res, err := agg.Apply(context.Background(), record("CLM-1", "", 5000))
	require.NoError(t, err)
	assert.False(t, res.HasParent)
	assert.Equal(t, int64(5000), res.YearSnapshot.Total.MinorUnits)
}

func TestAggregator_YearKeyScopedPerCedant(t *testing.T) {
	store := NewInMemoryStore()
	agg := NewAggregator(store, nil)
	ctx := context.Background()

	_, err := agg.Apply(ctx, record("CLM-1", "", 10000))
	require.NoError(t, err)

	other := record("CLM-1", "", 7500)
	other.ID.Cedant = "CED-002"
	res, err := agg.Apply(ctx, other)
	require.NoError(t, err)

	// Each cedant's year total reflects only its own claims.
	assert.Equal(t, int64(7500), res.YearSnapshot.Total.MinorUnits)
	first, err := store.Get(ctx, domain.UWYearKey("CED-001", 2024))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), first.Total.MinorUnits)
}

func TestAggregator_RedeliverySafe(t *testing.T) {
	agg := NewAggregator(NewInMemoryStore(), nil)
	ctx := context.Background()

	rec := record("CLM-1", "P-77", 10000)
	first, err := agg.Apply(ctx, rec)
	require.NoError(t, err)

	second, err := agg.Apply(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, first, second, "pipeline retry must not double-count")
}
