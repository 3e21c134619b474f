// Package domain holds the typed primitives of the claims engine. Values are
// constructed via Parse* functions at trust boundaries so invalid identifiers
// never travel past the edge.
package domain

import (
	"fmt"
	"strings"

	dErrors "bordero/pkg/domain-errors"
)

// CedantID identifies the ceding insurer submitting claims.
type CedantID string

// ClaimNumber is the cedant-assigned claim number. Unique only per cedant.
type ClaimNumber string

// ParentID groups related claims under a shared treaty limit.
type ParentID string

// TreatyID identifies a reinsurance treaty slip.
type TreatyID string

// BrokerRef is the broker or cedant reference attached to a claim submission.
type BrokerRef string

// UnderwritingYear is the year a treaty was underwritten, used as an
// aggregation key.
type UnderwritingYear int

// ClaimID is the engine-wide claim identity: claim numbers repeat across
// cedants, so identity is the pair.
type ClaimID struct {
	Cedant CedantID
	Number ClaimNumber
}

// String renders the identity as "cedant/number" for keys and logs.
func (id ClaimID) String() string {
	return string(id.Cedant) + "/" + string(id.Number)
}

// IsZero reports whether either component is missing.
func (id ClaimID) IsZero() bool {
	return id.Cedant == "" || id.Number == ""
}

// ParseCedantID validates a cedant identifier from external input.
func ParseCedantID(s string) (CedantID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "cedant id cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "cedant id too long")
	}
	return CedantID(s), nil
}

// ParseClaimNumber validates a claim number from external input.
func ParseClaimNumber(s string) (ClaimNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "claim number cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "claim number too long")
	}
	return ClaimNumber(s), nil
}

// ParseUnderwritingYear validates an underwriting year. Treaties predating
// 1900 or more than one year in the future are malformed extraction output,
// not real business data.
func ParseUnderwritingYear(year int, currentYear int) (UnderwritingYear, error) {
	if year < 1900 || year > currentYear+1 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "underwriting year %d out of range", year)
	}
	return UnderwritingYear(year), nil
}

// BenefitType classifies what a claim pays for; treaty exclusions match on it.
type BenefitType string

// Benefit types seen across life and health reinsurance bordereaux.
const (
	BenefitDeath             BenefitType = "death"
	BenefitDisability        BenefitType = "disability"
	BenefitCriticalIllness   BenefitType = "critical_illness"
	BenefitHospitalization   BenefitType = "hospitalization"
	BenefitAccidentalDeath   BenefitType = "accidental_death"
	BenefitMedicalExpenses   BenefitType = "medical_expenses"
	BenefitTemporaryDisable  BenefitType = "temporary_disability"
	BenefitPermanentDisable  BenefitType = "permanent_disability"
	BenefitRepatriation      BenefitType = "repatriation"
	BenefitFuneralExpenses   BenefitType = "funeral_expenses"
	BenefitUnknown           BenefitType = "unknown"
)

var validBenefitTypes = map[BenefitType]bool{
	BenefitDeath:            true,
	BenefitDisability:       true,
	BenefitCriticalIllness:  true,
	BenefitHospitalization:  true,
	BenefitAccidentalDeath:  true,
	BenefitMedicalExpenses:  true,
	BenefitTemporaryDisable: true,
	BenefitPermanentDisable: true,
	BenefitRepatriation:     true,
	BenefitFuneralExpenses:  true,
}

// ParseBenefitType normalizes a raw benefit label. Unknown labels map to
// BenefitUnknown rather than failing: extraction output is noisy and an
// unrecognized benefit still needs exclusion review, not a hard reject.
func ParseBenefitType(s string) BenefitType {
	normalized := BenefitType(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	if validBenefitTypes[normalized] {
		return normalized
	}
	return BenefitUnknown
}

// String returns the string representation of the benefit type.
func (b BenefitType) String() string {
	return string(b)
}

// AggregateKey addresses one accumulator in the aggregate store. Two key
// spaces exist: per cedant and underwriting year, and per treaty Parent-ID.
type AggregateKey string

// UWYearKey builds the aggregation key for a cedant's underwriting year.
// Scoping by cedant keeps one cedant's bordereau sum comparable to its own
// statement total regardless of how many cedants share the year.
func UWYearKey(cedant CedantID, year UnderwritingYear) AggregateKey {
	return AggregateKey(fmt.Sprintf("uwy:%s:%d", string(cedant), int(year)))
}

// ParentKey builds the aggregation key for a treaty Parent-ID.
func ParentKey(parent ParentID) AggregateKey {
	return AggregateKey("parent:" + string(parent))
}
