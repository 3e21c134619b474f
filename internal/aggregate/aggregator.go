package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
)

// Aggregator applies one claim to both aggregation key spaces and hands the
// post-update snapshots to downstream checks. The treaty-limit check must see
// the Parent-ID snapshot that already includes the current claim, so the
// engine calls Apply before fanning the checkers out.
type Aggregator struct {
	store  Store
	logger *slog.Logger
}

// Result carries the post-apply snapshots for one claim. ParentSnapshot is
// zero when the claim has no Parent-ID (treaty-limit check then reports a
// missing-treaty condition instead).
type Result struct {
	YearSnapshot   Snapshot
	ParentSnapshot Snapshot
	HasParent      bool
}

// NewAggregator builds an Aggregator on the given store.
func NewAggregator(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// Apply folds the claim into the underwriting-year and Parent-ID accumulators.
// Idempotence is inherited from the store, so pipeline retries are safe.
func (a *Aggregator) Apply(ctx context.Context, record models.ClaimRecord) (Result, error) {
	yearSnap, err := a.store.Apply(ctx, domain.UWYearKey(record.ID.Cedant, record.UnderwritingYear), record.ID, record.PaidLoss)
	if err != nil {
		return Result{}, fmt.Errorf("apply uw-year aggregate: %w", err)
	}

	res := Result{YearSnapshot: yearSnap}

	if record.ParentID != "" {
		parentSnap, err := a.store.Apply(ctx, domain.ParentKey(record.ParentID), record.ID, record.PaidLoss)
		if err != nil {
			return Result{}, fmt.Errorf("apply parent aggregate: %w", err)
		}
		res.ParentSnapshot = parentSnap
		res.HasParent = true
	}

	if a.logger != nil {
		a.logger.DebugContext(ctx, "aggregates applied",
			"claim", record.ID.String(),
			"uw_year_total", yearSnap.Total.String(),
			"uw_year_version", yearSnap.Version,
			"has_parent", res.HasParent,
		)
	}

	return res, nil
}
