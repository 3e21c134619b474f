// Package treatylimit ensures cumulative Parent-ID paid losses stay within
// the treaty's per-Parent-ID limit. It must read the post-aggregation
// snapshot, the one that already includes the current claim, so the engine
// runs the aggregator before this check.
package treatylimit

import (
	"context"
	"fmt"

	"bordero/internal/aggregate"
	"bordero/internal/claims/models"
	"bordero/internal/refdata"
)

// Checker compares a Parent-ID aggregate snapshot against the treaty limit.
type Checker struct{}

// New builds a treaty-limit checker.
func New() *Checker {
	return &Checker{}
}

// Check blocks when the cumulative Parent-ID sum, including this claim,
// strictly exceeds the treaty limit. Claims without a Parent-ID or under a
// treaty with no limit configured pass.
func (c *Checker) Check(ctx context.Context, record models.ClaimRecord, slip *refdata.TreatySlip, agg aggregate.Result) ([]models.Finding, error) {
	if slip == nil || !agg.HasParent || !slip.ParentLimit.IsPositive() {
		return nil, nil
	}

	cumulative := agg.ParentSnapshot.Total
	overage, err := cumulative.Sub(slip.ParentLimit)
	if err != nil {
		return nil, fmt.Errorf("compare parent aggregate with treaty limit: %w", err)
	}
	if !overage.IsPositive() {
		return nil, nil
	}

	return []models.Finding{{
		Check:    models.CheckTreatyLimit,
		Kind:     models.KindTreatyLimitExceeded,
		Claim:    record.ID,
		Severity: models.SeverityBlocking,
		Message: fmt.Sprintf("cumulative paid losses %s for parent %s exceed treaty limit %s by %s",
			cumulative, record.ParentID, slip.ParentLimit, overage),
		Evidence: map[string]string{
			"parent_id":        string(record.ParentID),
			"treaty_id":        string(slip.ID),
			"cumulative":       cumulative.String(),
			"limit":            slip.ParentLimit.String(),
			"overage":          overage.String(),
			"snapshot_version": fmt.Sprintf("%d", agg.ParentSnapshot.Version),
		},
	}}, nil
}
