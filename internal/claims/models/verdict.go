package models

import (
	"time"

	"bordero/pkg/domain"
)

// VerdictState is a node in the claim review state machine:
//
//	Received -> Normalized -> Checked -> {Clean, Flagged}
//	Clean    -> Approved (straight-through) or PendingSupervisor
//	Flagged  -> PendingSupervisor
//	PendingSupervisor -> {Approved, Rejected} (supervisor decision only)
//
// Approved and Rejected are terminal and immutable.
type VerdictState string

const (
	StateReceived          VerdictState = "received"
	StateNormalized        VerdictState = "normalized"
	StateChecked           VerdictState = "checked"
	StateClean             VerdictState = "clean"
	StateFlagged           VerdictState = "flagged"
	StatePendingSupervisor VerdictState = "pending_supervisor"
	StateApproved          VerdictState = "approved"
	StateRejected          VerdictState = "rejected"
)

// transitions is the single source of truth for legal state changes.
var transitions = map[VerdictState][]VerdictState{
	StateReceived:          {StateNormalized},
	StateNormalized:        {StateChecked},
	StateChecked:           {StateClean, StateFlagged},
	StateClean:             {StateApproved, StatePendingSupervisor},
	StateFlagged:           {StatePendingSupervisor},
	StatePendingSupervisor: {StateApproved, StateRejected},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to VerdictState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s VerdictState) IsTerminal() bool {
	return s == StateApproved || s == StateRejected
}

// String returns the string representation of the state.
func (s VerdictState) String() string {
	return string(s)
}

// RiskLevel buckets the deterministic risk score for supervisor triage.
type RiskLevel string

const (
	RiskVeryLow RiskLevel = "very_low"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// RiskLevelFor maps a score in [0,1] to its triage bucket.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskHigh
	case score >= 0.6:
		return RiskMedium
	case score >= 0.4:
		return RiskLow
	default:
		return RiskVeryLow
	}
}

// PostingFacts are the claim facts a downstream booking needs. They are
// snapshotted onto the verdict at composition time so a later supervisor
// approval can build the full posting without re-reading the submission.
type PostingFacts struct {
	TreatyID         domain.TreatyID         `json:"treaty_id"`
	BrokerRef        domain.BrokerRef        `json:"broker_ref"`
	UnderwritingYear domain.UnderwritingYear `json:"underwriting_year"`
	DateOfLoss       time.Time               `json:"date_of_loss"`
	PaidLoss         domain.Money            `json:"paid_loss"`
	BenefitType      domain.BenefitType      `json:"benefit_type"`
}

// Verdict is the composed outcome for one claim, carrying the findings that
// led to it. Version increments on every transition for optimistic updates.
type Verdict struct {
	Claim     domain.ClaimID `json:"claim"`
	State     VerdictState   `json:"state"`
	Findings  []Finding      `json:"findings"`
	RiskScore float64        `json:"risk_score"`
	RiskLevel RiskLevel      `json:"risk_level"`
	Version   int            `json:"version"`
	Posting   PostingFacts   `json:"posting"`

	// Supervisor decision fields, set only on PendingSupervisor resolution.
	DecidedBy     string `json:"decided_by,omitempty"`
	Justification string `json:"justification,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewDecision is the human-review boundary input: the sole resolver of
// PendingSupervisor.
type ReviewDecision struct {
	Claim         domain.ClaimID
	Approve       bool
	SupervisorID  string
	Justification string
	DecidedAt     time.Time
}
