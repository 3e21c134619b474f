package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "bordero/pkg/domain-errors"
)

// Money is a fixed-point monetary amount in currency minor units (cents for
// two-decimal currencies). All aggregate sums and tolerance comparisons run on
// int64 minor units so currencies never drift through float arithmetic.
type Money struct {
	MinorUnits int64  `json:"minor_units"`
	Currency   string `json:"currency"`
}

// minorUnitDigits maps ISO currency codes to their decimal exponent.
// Everything not listed uses two decimals.
var minorUnitDigits = map[string]int{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

func exponent(currency string) int {
	if d, ok := minorUnitDigits[currency]; ok {
		return d
	}
	return 2
}

// ParseMoney converts a decimal string like "151200.50" into minor units
// without passing through float64. Thousands separators are tolerated since
// bordereau extraction frequently leaves them in.
func ParseMoney(amount, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid currency code %q", currency)
	}

	s := strings.TrimSpace(amount)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Money{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}

	digits := exponent(currency)
	if len(frac) > digits {
		return Money{}, dErrors.Newf(dErrors.CodeInvalidInput, "amount %q has more than %d decimal places for %s", amount, digits, currency)
	}
	// Pad the fraction to the currency's exponent.
	frac += strings.Repeat("0", digits-len(frac))

	units, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return Money{}, dErrors.Newf(dErrors.CodeInvalidInput, "amount %q is not a number", amount)
	}
	if negative {
		units = -units
	}

	return Money{MinorUnits: units, Currency: currency}, nil
}

// NewMoney builds a Money value from minor units directly.
func NewMoney(minorUnits int64, currency string) Money {
	return Money{MinorUnits: minorUnits, Currency: strings.ToUpper(currency)}
}

// Add returns the sum. Both operands must share a currency; the engine never
// converts between currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, dErrors.Newf(dErrors.CodeInvalidInput, "currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{MinorUnits: m.MinorUnits + other.MinorUnits, Currency: m.Currency}, nil
}

// Sub returns m - other under the same single-currency rule.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, dErrors.Newf(dErrors.CodeInvalidInput, "currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{MinorUnits: m.MinorUnits - other.MinorUnits, Currency: m.Currency}, nil
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.MinorUnits < 0 {
		return Money{MinorUnits: -m.MinorUnits, Currency: m.Currency}
	}
	return m
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.MinorUnits > 0
}

// String renders the amount with the currency's decimal exponent, e.g.
// "1512.00 USD".
func (m Money) String() string {
	digits := exponent(m.Currency)
	if digits == 0 {
		return fmt.Sprintf("%d %s", m.MinorUnits, m.Currency)
	}
	units := m.MinorUnits
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	div := int64(1)
	for range digits {
		div *= 10
	}
	return fmt.Sprintf("%s%d.%0*d %s", sign, units/div, digits, units%div, m.Currency)
}
