package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bordero/pkg/domain-errors"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     int64
		wantErr  bool
	}{
		{name: "plain integer", amount: "150000", currency: "USD", want: 15000000},
		{name: "two decimals", amount: "151200.50", currency: "USD", want: 15120050},
		{name: "one decimal padded", amount: "99.5", currency: "EUR", want: 9950},
		{name: "thousands separators", amount: "1,512,000.00", currency: "USD", want: 151200000},
		{name: "negative adjustment", amount: "-200.00", currency: "GBP", want: -20000},
		{name: "zero-decimal currency", amount: "150000", currency: "JPY", want: 150000},
		{name: "three-decimal currency", amount: "12.345", currency: "BHD", want: 12345},
		{name: "leading dot", amount: ".50", currency: "USD", want: 50},
		{name: "too many decimals", amount: "1.001", currency: "USD", wantErr: true},
		{name: "decimals on zero-decimal currency", amount: "100.5", currency: "JPY", wantErr: true},
		{name: "not a number", amount: "12a.00", currency: "USD", wantErr: true},
		{name: "empty amount", amount: "", currency: "USD", wantErr: true},
		{name: "bad currency", amount: "100", currency: "US", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.MinorUnits)
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoney(15000000, "USD")
	b := NewMoney(120000, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(15120000), sum.MinorUnits)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(14880000), diff.MinorUnits)

	t.Run("currency mismatch is rejected", func(t *testing.T) {
		_, err := a.Add(NewMoney(100, "EUR"))
		require.Error(t, err)
		_, err = a.Sub(NewMoney(100, "EUR"))
		require.Error(t, err)
	})

	t.Run("abs flips negatives only", func(t *testing.T) {
		assert.Equal(t, int64(20000), NewMoney(-20000, "USD").Abs().MinorUnits)
		assert.Equal(t, int64(20000), NewMoney(20000, "USD").Abs().MinorUnits)
	})
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "1512.00 USD", NewMoney(151200, "USD").String())
	assert.Equal(t, "-0.05 USD", NewMoney(-5, "USD").String())
	assert.Equal(t, "150000 JPY", NewMoney(150000, "JPY").String())
	assert.Equal(t, "12.345 BHD", NewMoney(12345, "BHD").String())
}

func TestParseClaimIdentity(t *testing.T) {
	t.Run("rejects empty cedant", func(t *testing.T) {
		_, err := ParseCedantID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty claim number", func(t *testing.T) {
		_, err := ParseClaimNumber("")
		require.Error(t, err)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		c, err := ParseCedantID("  CED-001 ")
		require.NoError(t, err)
		assert.Equal(t, CedantID("CED-001"), c)
	})

	t.Run("claim id string form", func(t *testing.T) {
		id := ClaimID{Cedant: "CED-001", Number: "CLM-42"}
		assert.Equal(t, "CED-001/CLM-42", id.String())
		assert.False(t, id.IsZero())
		assert.True(t, ClaimID{}.IsZero())
	})
}

func TestParseUnderwritingYear(t *testing.T) {
	_, err := ParseUnderwritingYear(1850, 2026)
	require.Error(t, err)

	_, err = ParseUnderwritingYear(2030, 2026)
	require.Error(t, err)

	y, err := ParseUnderwritingYear(2024, 2026)
	require.NoError(t, err)
	assert.Equal(t, UnderwritingYear(2024), y)
}

func TestParseBenefitType(t *testing.T) {
	assert.Equal(t, BenefitCriticalIllness, ParseBenefitType("Critical Illness"))
	assert.Equal(t, BenefitDeath, ParseBenefitType(" DEATH "))
	assert.Equal(t, BenefitUnknown, ParseBenefitType("quantum damages"))
}

func TestAggregateKeys(t *testing.T) {
	assert.Equal(t, AggregateKey("uwy:CED-01:2024"), UWYearKey("CED-01", 2024))
	assert.Equal(t, AggregateKey("parent:P-77"), ParentKey("P-77"))
}

func TestUWYearKey_ScopedPerCedant(t *testing.T) {
	assert.NotEqual(t, UWYearKey("CED-01", 2024), UWYearKey("CED-02", 2024))
}
