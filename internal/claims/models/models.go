// Package models holds the shared types of the claims validation engine:
// the normalized claim record, checker findings, and statement lines.
// Verdict state machine types live in verdict.go.
package models

import (
	"time"

	"bordero/pkg/domain"
)

// ClaimRecord is a claim after normalization. Immutable once validated;
// identified by (cedant ID, claim number).
type ClaimRecord struct {
	ID               domain.ClaimID
	BrokerRef        domain.BrokerRef
	TreatyID         domain.TreatyID
	ParentID         domain.ParentID
	UnderwritingYear domain.UnderwritingYear
	DateOfLoss       time.Time
	PaymentDate      time.Time
	InsuredAge       int
	PaidLoss         domain.Money
	BenefitType      domain.BenefitType
	Conditions       []string

	// Extraction metadata. Fields below the configured confidence threshold
	// are retained but listed here; they surface as an Advisory finding
	// instead of corrupting aggregates silently.
	SchemaVersion       int
	Confidence          float64
	LowConfidenceFields []string
	SourceDocuments     []string

	ReceivedAt time.Time
}

// BordereauLine is one paid-loss entry from a cedant bordereau.
type BordereauLine struct {
	Cedant           domain.CedantID
	UnderwritingYear domain.UnderwritingYear
	Amount           domain.Money
}

// StatementLine is a cedant-statement total for one underwriting year,
// compared against the bordereau-derived aggregate by the discrepancy check.
type StatementLine struct {
	Cedant           domain.CedantID
	UnderwritingYear domain.UnderwritingYear
	Total            domain.Money
}

// Severity classifies a finding's effect on the verdict.
type Severity string

const (
	// SeverityAdvisory surfaces to the supervisor but does not block
	// straight-through processing on its own.
	SeverityAdvisory Severity = "advisory"
	// SeverityBlocking forces the claim to Flagged and supervisor review.
	SeverityBlocking Severity = "blocking"
)

// CheckName identifies the checker that produced a finding.
type CheckName string

const (
	CheckNormalization CheckName = "normalization"
	CheckDiscrepancy   CheckName = "discrepancy"
	CheckExclusion     CheckName = "exclusion"
	CheckEligibility   CheckName = "eligibility"
	CheckTreatyLimit   CheckName = "treaty_limit"
	CheckDuplicate     CheckName = "duplicate"
	CheckRisk          CheckName = "risk"
	CheckUpstream      CheckName = "upstream"
)

// Finding kinds. A check can emit more than one kind; the kind is stable
// across releases so audit consumers can filter on it.
const (
	KindLowConfidence        = "low_confidence_extraction"
	KindCurrencyMismatch     = "currency_mismatch"
	KindStatementMismatch    = "statement_mismatch"
	KindExclusionMatch       = "exclusion_match"
	KindMissingTreaty        = "missing_treaty"
	KindLossOutsideWindow    = "loss_outside_window"
	KindPaymentOutsideWindow = "payment_outside_window"
	KindAgeLimitExceeded     = "age_limit_exceeded"
	KindTreatyLimitExceeded  = "treaty_limit_exceeded"
	KindDuplicateExact       = "duplicate_exact"
	KindDuplicateSimilar     = "duplicate_similar"
	KindHighRisk             = "high_risk"
	KindUpstreamUnavailable  = "upstream_unavailable"
)

// Finding is one check outcome. Immutable once emitted; silence means pass,
// so checkers return a nil slice for clean claims.
type Finding struct {
	Check    CheckName         `json:"check"`
	Kind     string            `json:"kind"`
	Claim    domain.ClaimID    `json:"claim"`
	Severity Severity          `json:"severity"`
	Message  string            `json:"message"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

// HasBlocking reports whether any finding in the slice is blocking.
func HasBlocking(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}
