// Package engine orchestrates the claim validation pipeline: normalize,
// aggregate, fan the checks out, score, and hand the findings to the verdict
// composer. The engine never decides anything itself; it only assembles the
// evidence the state machine acts on.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"bordero/internal/aggregate"
	"bordero/internal/checks/discrepancy"
	"bordero/internal/checks/duplicate"
	"bordero/internal/checks/eligibility"
	"bordero/internal/checks/exclusion"
	"bordero/internal/checks/risk"
	"bordero/internal/checks/treatylimit"
	"bordero/internal/claims/models"
	"bordero/internal/normalizer"
	"bordero/internal/platform/metrics"
	"bordero/internal/refdata"
	"bordero/internal/verdict"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	audit "bordero/pkg/platform/audit"
	"bordero/pkg/platform/sentinel"
	"bordero/pkg/requestcontext"
)

// AuditPort emits trail events for pipeline milestones. It matches the audit
// publisher; defined here to keep the module boundary clean.
type AuditPort interface {
	Emit(ctx context.Context, event audit.Event) error
}

const systemActor = "system"

// Checkers bundles the validation checks the engine fans out per claim.
// All checkers are safe for concurrent use.
type Checkers struct {
	Discrepancy *discrepancy.Checker
	Exclusion   *exclusion.Checker
	Eligibility *eligibility.Checker
	TreatyLimit *treatylimit.Checker
	Duplicate   *duplicate.Checker
	Risk        *risk.Scorer
}

// Service runs the end-to-end pipeline for one submission. Aggregation
// happens before the check fan-out so the treaty-limit and discrepancy
// checks see snapshots that already include the current claim.
type Service struct {
	normalizer *normalizer.Normalizer
	aggregator *aggregate.Aggregator
	treaties   refdata.TreatyStore
	checks     Checkers
	verdicts   *verdict.Service
	audits     AuditPort
	metrics    *metrics.Metrics
	logger     *slog.Logger
	stats      *Stats
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs the pipeline engine.
func NewService(
	norm *normalizer.Normalizer,
	agg *aggregate.Aggregator,
	treaties refdata.TreatyStore,
	checks Checkers,
	verdicts *verdict.Service,
	audits AuditPort,
	opts ...Option,
) *Service {
	s := &Service{
		normalizer: norm,
		aggregator: agg,
		treaties:   treaties,
		checks:     checks,
		verdicts:   verdicts,
		audits:     audits,
		logger:     slog.Default(),
		stats:      NewStats(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Process runs one submission through the full pipeline and returns the
// composed verdict. Redelivery of an already-resolved claim returns the
// existing terminal verdict unchanged.
//
// Infrastructure failures inside an individual check do not abort the run:
// they become a blocking upstream finding so the claim lands in review
// instead of being silently waved through.
func (s *Service) Process(ctx context.Context, sub normalizer.Submission) (models.Verdict, error) {
	ctx, span := otel.Tracer("engine").Start(ctx, "engine.Process")
	defer span.End()

	s.stats.Received.Add(1)
	if s.metrics != nil {
		s.metrics.ClaimsReceived.Inc()
	}

	// Best-effort identity for the received/failed audit rows; normalization
	// validates these for real.
	rawID := domain.ClaimID{
		Cedant: domain.CedantID(sub.Fields[normalizer.FieldCedantID]),
		Number: domain.ClaimNumber(sub.Fields[normalizer.FieldClaimNumber]),
	}

	record, err := s.normalizer.Normalize(sub)
	if err != nil {
		s.stats.Rejected.Add(1)
		if s.metrics != nil {
			s.metrics.NormalizationFailures.Inc()
		}
		s.emit(ctx, rawID, audit.ActionClaimReceived, systemActor, "",
			fmt.Sprintf("schema v%d, %d fields", sub.SchemaVersion, len(sub.Fields)))
		s.emit(ctx, rawID, audit.ActionNormalizationFailed, systemActor, "", err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalization failed")
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeValidation, "normalize submission")
	}

	span.SetAttributes(
		attribute.String("claim.cedant", string(record.ID.Cedant)),
		attribute.String("claim.number", string(record.ID.Number)),
		attribute.Int("claim.uw_year", int(record.UnderwritingYear)),
	)

	// Redelivery of a resolved claim leaves only the skipped notice behind:
	// no received row, no aggregate mutation, no check findings.
	if existing, err := s.verdicts.Get(ctx, record.ID); err == nil && existing.State.IsTerminal() {
		s.emit(ctx, record.ID, audit.ActionReprocessSkipped, systemActor,
			string(existing.State), "claim already resolved")
		s.logger.InfoContext(ctx, "claim already resolved, skipping",
			"claim", record.ID.String(),
			"state", string(existing.State),
		)
		return existing, nil
	}

	s.emit(ctx, rawID, audit.ActionClaimReceived, systemActor, "",
		fmt.Sprintf("schema v%d, %d fields", sub.SchemaVersion, len(sub.Fields)))

	var findings []models.Finding
	aggRes, err := s.aggregator.Apply(ctx, record)
	var mismatch *aggregate.CurrencyMismatchError
	switch {
	case err == nil:
		s.emit(ctx, record.ID, audit.ActionAggregateApplied, systemActor, "",
			fmt.Sprintf("uw-year total %s (v%d)", aggRes.YearSnapshot.Total, aggRes.YearSnapshot.Version))
		findings = s.runChecks(ctx, record, aggRes)
		findings = append(findings, s.normalizer.AdvisoryFindings(record)...)
	case errors.As(err, &mismatch):
		// A second currency cannot fold into the accumulator, and without a
		// snapshot the aggregate checks cannot run. The claim goes to review
		// with the mismatch as its finding instead of failing the pipeline.
		findings = []models.Finding{currencyFinding(record.ID, mismatch)}
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate apply failed")
		return models.Verdict{}, dErrors.Wrap(err, dErrors.CodeInternal, "apply aggregates")
	}

	riskScore, triggers := s.checks.Risk.Score(record)
	if len(triggers) > 0 {
		s.logger.DebugContext(ctx, "risk triggers",
			"claim", record.ID.String(),
			"score", riskScore,
			"triggers", triggers,
		)
	}

	s.observeFindings(findings)

	v, err := s.verdicts.Compose(ctx, record, findings, riskScore)
	if errors.Is(err, sentinel.ErrTerminal) {
		// Redelivered submission for a resolved claim: quiet no-op.
		s.logger.InfoContext(ctx, "claim already resolved, skipping",
			"claim", record.ID.String(),
			"state", string(v.State),
		)
		return v, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compose verdict failed")
		return models.Verdict{}, err
	}

	s.stats.Processed.Add(1)
	if v.State == models.StateFlagged || v.State == models.StatePendingSupervisor {
		s.stats.Flagged.Add(1)
	}
	if s.metrics != nil {
		s.metrics.VerdictsByState.WithLabelValues(string(v.State)).Inc()
	}
	span.SetAttributes(attribute.String("verdict.state", string(v.State)))

	s.logger.InfoContext(ctx, "claim processed",
		"claim", record.ID.String(),
		"state", string(v.State),
		"findings", len(v.Findings),
		"risk_score", v.RiskScore,
		"request_id", requestcontext.RequestID(ctx),
	)
	return v, nil
}

// runChecks fans the validation checks out and merges their findings in a
// fixed order so two runs over the same claim produce identical verdicts.
func (s *Service) runChecks(ctx context.Context, record models.ClaimRecord, aggRes aggregate.Result) []models.Finding {
	slip, err := s.treaties.Get(ctx, record.TreatyID)
	var slipFindings []models.Finding
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		// Missing reference data is a review condition, not a pipeline error.
		slipFindings = append(slipFindings, s.upstreamFinding(record.ID, models.CheckExclusion,
			"treaty reference data unavailable"))
		slip = nil
	}

	type task struct {
		name models.CheckName
		run  func(context.Context) ([]models.Finding, error)
	}
	tasks := []task{
		{models.CheckDiscrepancy, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.Discrepancy.Check(ctx, record, aggRes.YearSnapshot.Total)
		}},
		{models.CheckExclusion, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.Exclusion.Check(ctx, record, slip)
		}},
		{models.CheckEligibility, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.Eligibility.Check(ctx, record, slip)
		}},
		{models.CheckTreatyLimit, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.TreatyLimit.Check(ctx, record, slip, aggRes)
		}},
		{models.CheckDuplicate, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.Duplicate.Check(ctx, record)
		}},
		{models.CheckRisk, func(ctx context.Context) ([]models.Finding, error) {
			return s.checks.Risk.Check(ctx, record)
		}},
	}

	results := make([][]models.Finding, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range tasks {
		g.Go(func() error {
			start := time.Now()
			fs, err := t.run(gctx)
			if s.metrics != nil {
				s.metrics.ObserveCheck(string(t.name), time.Since(start))
			}
			if err != nil {
				s.logger.ErrorContext(gctx, "check failed",
					"check", string(t.name),
					"claim", record.ID.String(),
					"error", err,
				)
				fs = append(fs, s.upstreamFinding(record.ID, t.name, err.Error()))
			}
			results[i] = fs
			return nil
		})
	}
	// Checks never return errors through the group; failures become findings.
	_ = g.Wait()

	merged := slipFindings
	for _, fs := range results {
		merged = append(merged, fs...)
	}
	return merged
}

// currencyFinding blocks a claim whose paid-loss currency conflicts with the
// accumulator it would aggregate into.
func currencyFinding(claim domain.ClaimID, mismatch *aggregate.CurrencyMismatchError) models.Finding {
	return models.Finding{
		Check:    models.CheckNormalization,
		Kind:     models.KindCurrencyMismatch,
		Claim:    claim,
		Severity: models.SeverityBlocking,
		Message: fmt.Sprintf("paid loss in %s cannot fold into %s accumulator %s",
			mismatch.Got, mismatch.Want, mismatch.Key),
		Evidence: map[string]string{
			"key":                  string(mismatch.Key),
			"currency":             mismatch.Got,
			"accumulator_currency": mismatch.Want,
		},
	}
}

// upstreamFinding blocks a claim whose check could not run to completion.
func (s *Service) upstreamFinding(claim domain.ClaimID, check models.CheckName, reason string) models.Finding {
	return models.Finding{
		Check:    check,
		Kind:     models.KindUpstreamUnavailable,
		Claim:    claim,
		Severity: models.SeverityBlocking,
		Message:  fmt.Sprintf("check could not complete: %s", reason),
	}
}

func (s *Service) observeFindings(findings []models.Finding) {
	for _, f := range findings {
		if s.metrics != nil {
			s.metrics.FindingsBySeverity.WithLabelValues(string(f.Check), string(f.Severity)).Inc()
		}
		switch f.Kind {
		case models.KindDuplicateExact, models.KindDuplicateSimilar:
			s.stats.Duplicates.Add(1)
		case models.KindHighRisk:
			s.stats.HighRisk.Add(1)
		}
	}
}

// Snapshot reports live pipeline counters plus the verdict-state breakdown.
func (s *Service) Snapshot(ctx context.Context) (StatsSnapshot, error) {
	snap := s.stats.Snapshot()
	byState, err := s.verdicts.Stats(ctx)
	if err != nil {
		return StatsSnapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "count verdicts")
	}
	snap.VerdictsByState = make(map[string]int, len(byState))
	for state, n := range byState {
		snap.VerdictsByState[string(state)] = n
	}
	return snap, nil
}

// emit audits a pipeline milestone. Audit failures are logged, never fatal.
func (s *Service) emit(ctx context.Context, claim domain.ClaimID, action audit.Action,
	actor, decision, reason string) {

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		Claim:     claim,
		Action:    action,
		Actor:     actor,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audits.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "emit audit event",
			"claim", claim.String(),
			"action", string(action),
			"error", err,
		)
	}
}
