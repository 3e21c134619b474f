package verdict

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"bordero/internal/claims/models"
	"bordero/internal/sics"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	audit "bordero/pkg/platform/audit"
	"bordero/pkg/platform/sentinel"
	"bordero/pkg/platform/tx"
	"bordero/pkg/requestcontext"
)

// AuditPort defines the interface for emitting audit events. It matches the
// publisher but is defined here to keep the module boundary clean.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}

// systemActor marks transitions made by the engine rather than a person.
const systemActor = "system"

// Service owns the verdict state machine. Every transition is written to the
// audit trail in the same transaction that makes it durable, and terminal
// verdicts are immutable: re-processing a resolved claim is a quiet no-op
// signalled by sentinel.ErrTerminal.
type Service struct {
	store           Store
	audits          AuditPort
	poster          sics.Poster
	runner          tx.Runner
	straightThrough bool
	logger          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStraightThrough auto-approves clean claims without supervisor review.
func WithStraightThrough(enabled bool) Option {
	return func(s *Service) { s.straightThrough = enabled }
}

// WithTxRunner makes verdict saves and their audit rows commit atomically.
// Pass the runner over the same database handle the stores use.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.runner = runner }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs the verdict service.
func NewService(store Store, audits AuditPort, poster sics.Poster, opts ...Option) *Service {
	s := &Service{
		store:  store,
		audits: audits,
		poster: poster,
		runner: tx.Passthrough{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Compose folds the check findings for a claim into its verdict and advances
// the state machine as far as it can go without a human: blocking findings
// flag the claim for review, while advisory-only findings leave it clean, so
// a clean claim auto-approves under straight-through processing with its
// advisories attached for the record.
//
// Composing a claim whose verdict is already terminal returns the existing
// verdict and sentinel.ErrTerminal so redelivered submissions never reopen
// decided claims.
func (s *Service) Compose(ctx context.Context, record models.ClaimRecord, findings []models.Finding, riskScore float64) (models.Verdict, error) {
	existing, err := s.store.Get(ctx, record.ID)
	switch {
	case err == nil:
		if existing.State.IsTerminal() {
			s.emit(ctx, record.ID, audit.ActionReprocessSkipped, systemActor,
				string(existing.State), "claim already resolved", nil)
			return existing, sentinel.ErrTerminal
		}
		// A non-terminal verdict is superseded by the fresh run.
	case errors.Is(err, sentinel.ErrNotFound):
		// First sight of this claim.
	default:
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load verdict")
	}

	now := requestcontext.Now(ctx)
	verdict := models.Verdict{
		Claim:     record.ID,
		State:     models.StateChecked,
		Findings:  findings,
		RiskScore: riskScore,
		RiskLevel: models.RiskLevelFor(riskScore),
		Version:   existing.Version + 1,
		Posting:   postingFacts(record),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing.Version > 0 {
		verdict.CreatedAt = existing.CreatedAt
	}

	events := []audit.Event{
		s.newEvent(ctx, record.ID, audit.ActionChecksCompleted, systemActor, "", "", findings),
	}

	if models.HasBlocking(findings) {
		verdict.State = models.StateFlagged
		events = append(events,
			s.newEvent(ctx, record.ID, audit.ActionVerdictFlagged, systemActor, "", "", findings))
	} else {
		// Advisory findings ride along for the supervisor; only blocking
		// ones take auto-approval eligibility away.
		verdict.State = models.StateClean
		events = append(events,
			s.newEvent(ctx, record.ID, audit.ActionVerdictClean, systemActor, "", "", nil))
	}

	switch {
	case verdict.State == models.StateClean && s.straightThrough:
		verdict, events = s.autoApprove(ctx, record, verdict, events)
	default:
		verdict.State = models.StatePendingSupervisor
		events = append(events,
			s.newEvent(ctx, record.ID, audit.ActionReviewQueued, systemActor, "", "", nil))
	}

	if err := s.saveWithTrail(ctx, verdict, events); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeConflict, "verdict changed concurrently")
		}
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "save verdict")
	}

	s.logger.InfoContext(ctx, "verdict composed",
		"claim", record.ID.String(),
		"state", verdict.State.String(),
		"findings", len(findings),
		"risk_level", string(verdict.RiskLevel),
	)
	return verdict, nil
}

// autoApprove posts the clean claim downstream and marks it Approved. A
// posting failure converts to a blocking upstream finding and routes the
// claim to review instead of stalling the pipeline.
func (s *Service) autoApprove(ctx context.Context, record models.ClaimRecord,
	verdict models.Verdict, events []audit.Event) (models.Verdict, []audit.Event) {

	posting := sics.NewPosting(record.ID, record.TreatyID, record.UnderwritingYear,
		record.DateOfLoss, record.PaidLoss, record.BenefitType, record.BrokerRef)

	result, err := s.poster.PostClaim(ctx, posting)
	if err != nil {
		finding := models.Finding{
			Check:    models.CheckUpstream,
			Kind:     models.KindUpstreamUnavailable,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message:  "posting service unavailable, claim routed to review",
		}
		verdict.Findings = append(verdict.Findings, finding)
		verdict.State = models.StatePendingSupervisor
		events = append(events,
			s.newEvent(ctx, record.ID, audit.ActionPostingFailed, systemActor, "", err.Error(), nil),
			s.newEvent(ctx, record.ID, audit.ActionReviewQueued, systemActor, "", "posting unavailable", nil),
		)
		return verdict, events
	}

	verdict.State = models.StateApproved
	verdict.DecidedBy = systemActor
	verdict.Justification = "straight-through: no blocking findings"
	events = append(events,
		s.newEvent(ctx, record.ID, audit.ActionClaimPosted, systemActor, result.Reference, "", nil))
	events = append(events, s.issueCreditNote(ctx, posting, result)...)
	return verdict, events
}

// issueCreditNote acknowledges the booking back to the cedant account. The
// claim is already booked at this point, so a failed note is logged and left
// for manual follow-up rather than unwinding the approval.
func (s *Service) issueCreditNote(ctx context.Context, posting sics.ClaimPosting, result sics.PostingResult) []audit.Event {
	claim := domain.ClaimID{
		Cedant: domain.CedantID(posting.CedantID),
		Number: domain.ClaimNumber(posting.ClaimNumber),
	}
	note := sics.NewCreditNote(posting, result)
	if err := s.poster.PostCreditNote(ctx, note); err != nil {
		s.logger.WarnContext(ctx, "credit note not issued",
			"claim", claim.String(),
			"reference", result.Reference,
			"error", err,
		)
		return nil
	}
	return []audit.Event{
		s.newEvent(ctx, claim, audit.ActionCreditNoteIssued, systemActor, result.Reference, "", nil),
	}
}

// Decide resolves a PendingSupervisor verdict. It is the only path to the
// terminal states when straight-through processing is off.
func (s *Service) Decide(ctx context.Context, decision models.ReviewDecision) (models.Verdict, error) {
	if decision.SupervisorID == "" {
		return models.Verdict{}, dErrors.New(dErrors.CodeInvalidInput, "supervisor identity is required")
	}
	if decision.Justification == "" {
		return models.Verdict{}, dErrors.New(dErrors.CodeInvalidInput, "justification is required")
	}

	verdict, err := s.store.Get(ctx, decision.Claim)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Verdict{}, dErrors.New(dErrors.CodeNotFound, "no verdict for claim")
		}
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load verdict")
	}

	if verdict.State.IsTerminal() {
		return verdict, dErrors.Wrap(sentinel.ErrTerminal, dErrors.CodeConflict, "claim already resolved")
	}

	target := models.StateRejected
	outcome := "rejected"
	if decision.Approve {
		target = models.StateApproved
		outcome = "approved"
	}
	if !models.CanTransition(verdict.State, target) {
		return verdict, dErrors.Newf(dErrors.CodeConflict,
			"claim in state %s cannot be %s", verdict.State, outcome)
	}

	var events []audit.Event

	// Approval books the claim downstream first: if the ledger is down the
	// verdict stays pending and the supervisor retries later. The posting
	// carries the claim facts snapshotted onto the verdict at composition.
	if decision.Approve {
		posting := sics.NewPosting(verdict.Claim,
			verdict.Posting.TreatyID, verdict.Posting.UnderwritingYear,
			verdict.Posting.DateOfLoss, verdict.Posting.PaidLoss,
			verdict.Posting.BenefitType, verdict.Posting.BrokerRef)
		result, err := s.poster.PostClaim(ctx, posting)
		if err != nil {
			s.emit(ctx, decision.Claim, audit.ActionPostingFailed, decision.SupervisorID,
				"", err.Error(), nil)
			return verdict, dErrors.Wrap(err, dErrors.CodeUnavailable, "posting service unavailable")
		}
		events = append(events,
			s.newEvent(ctx, decision.Claim, audit.ActionClaimPosted, decision.SupervisorID, result.Reference, "", nil))
		events = append(events, s.issueCreditNote(ctx, posting, result)...)
	}

	now := decision.DecidedAt
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}

	verdict.State = target
	verdict.DecidedBy = decision.SupervisorID
	verdict.Justification = decision.Justification
	verdict.Version++
	verdict.UpdatedAt = now

	events = append(events,
		s.newEvent(ctx, decision.Claim, audit.ActionSupervisorDecision, decision.SupervisorID,
			outcome, decision.Justification, nil))

	if err := s.saveWithTrail(ctx, verdict, events); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeConflict, "verdict changed concurrently")
		}
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "save verdict")
	}

	s.logger.InfoContext(ctx, "supervisor decision recorded",
		"claim", decision.Claim.String(),
		"outcome", outcome,
		"supervisor", decision.SupervisorID,
	)
	return verdict, nil
}

// Get returns the current verdict for a claim.
func (s *Service) Get(ctx context.Context, claim domain.ClaimID) (models.Verdict, error) {
	verdict, err := s.store.Get(ctx, claim)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Verdict{}, dErrors.New(dErrors.CodeNotFound, "no verdict for claim")
		}
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "load verdict")
	}
	return verdict, nil
}

// ListPending returns the supervisor review queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]models.Verdict, error) {
	verdicts, err := s.store.ListByState(ctx, models.StatePendingSupervisor)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending verdicts")
	}
	return verdicts, nil
}

// Stats returns verdict counts by state.
func (s *Service) Stats(ctx context.Context) (map[models.VerdictState]int, error) {
	counts, err := s.store.CountByState(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count verdicts")
	}
	return counts, nil
}

// saveWithTrail writes the transition events and the verdict in one
// transaction. A trail write failure aborts the save, so a transition is
// never durable without its audit rows.
func (s *Service) saveWithTrail(ctx context.Context, verdict models.Verdict, events []audit.Event) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, event := range events {
			if err := s.audits.Emit(ctx, event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "record audit trail")
			}
		}
		return s.store.Save(ctx, verdict)
	})
}

// postingFacts snapshots the claim facts a later approval needs onto the
// verdict, so Decide works from the stored verdict alone.
func postingFacts(record models.ClaimRecord) models.PostingFacts {
	return models.PostingFacts{
		TreatyID:         record.TreatyID,
		BrokerRef:        record.BrokerRef,
		UnderwritingYear: record.UnderwritingYear,
		DateOfLoss:       record.DateOfLoss,
		PaidLoss:         record.PaidLoss,
		BenefitType:      record.BenefitType,
	}
}

// newEvent builds one audit event for the trail.
func (s *Service) newEvent(ctx context.Context, claim domain.ClaimID, action audit.Action,
	actor, decision, reason string, findings []models.Finding) audit.Event {

	var payload json.RawMessage
	if len(findings) > 0 {
		if b, err := json.Marshal(findings); err == nil {
			payload = b
		}
	}

	return audit.Event{
		Timestamp: time.Now().UTC(),
		Claim:     claim,
		Action:    action,
		Actor:     actor,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		Findings:  payload,
	}
}

// emit writes a trail notice that accompanies no state change, such as the
// skipped marker on a redelivered terminal claim. Failures are logged, not
// fatal: nothing durable depends on these.
func (s *Service) emit(ctx context.Context, claim domain.ClaimID, action audit.Action,
	actor, decision, reason string, findings []models.Finding) {

	if err := s.audits.Emit(ctx, s.newEvent(ctx, claim, action, actor, decision, reason, findings)); err != nil {
		s.logger.ErrorContext(ctx, "emit audit event",
			"claim", claim.String(),
			"action", string(action),
			"error", err,
		)
	}
}
