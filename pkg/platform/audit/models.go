package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"bordero/pkg/domain"
)

// Action names the lifecycle step an audit event records.
type Action string

const (
	ActionClaimReceived       Action = "claim_received"
	ActionNormalizationFailed Action = "normalization_failed"
	ActionAggregateApplied    Action = "aggregate_applied"
	ActionChecksCompleted     Action = "checks_completed"
	ActionVerdictClean        Action = "verdict_clean"
	ActionVerdictFlagged      Action = "verdict_flagged"
	ActionReviewQueued        Action = "review_queued"
	ActionSupervisorDecision  Action = "supervisor_decision"
	ActionClaimPosted         Action = "claim_posted"
	ActionCreditNoteIssued    Action = "credit_note_issued"
	ActionPostingFailed       Action = "posting_failed"
	ActionReprocessSkipped    Action = "reprocess_skipped"
)

// Event is emitted from domain logic to capture key actions on a claim. Keep
// it transport-agnostic so stores and sinks can fan out. The log is
// append-only: events are never updated or deleted, and replaying a claim's
// events in timestamp order reconstructs its decision history.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Claim     domain.ClaimID
	Action    Action
	Actor     string // system component or supervisor identity
	Decision  string // terminal outcome when the action decides something
	Reason    string
	RequestID string
	// Findings carries the check findings as JSON when the action produced
	// any, so the trail is self-contained for replay.
	Findings json.RawMessage
}

// Store persists audit events. Append assigns storage-side ordering;
// AppendWithID is idempotent so redelivered events never duplicate.
type Store interface {
	Append(ctx context.Context, event Event) error
	AppendWithID(ctx context.Context, eventID uuid.UUID, event Event) error
	ListByClaim(ctx context.Context, claim domain.ClaimID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
