// Package discrepancy compares bordereau-derived paid-loss sums against
// cedant-statement totals for the same underwriting year.
package discrepancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bordero/internal/claims/models"
	"bordero/internal/refdata"
	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// Tolerance configures when a difference counts as a discrepancy. The
// effective allowance is the looser of the two bounds, so small-year totals
// don't trip the percentage rule and large-year totals don't trip the floor.
type Tolerance struct {
	// AbsoluteFloorMinor is the flat allowance in currency minor units.
	AbsoluteFloorMinor int64
	// RelativePct is the allowance as a fraction of the statement total
	// (0.01 = 1%).
	RelativePct float64
}

// Allowance computes the effective tolerance for a statement total.
func (t Tolerance) Allowance(statementTotal domain.Money) int64 {
	relative := int64(t.RelativePct * float64(statementTotal.Abs().MinorUnits))
	if relative > t.AbsoluteFloorMinor {
		return relative
	}
	return t.AbsoluteFloorMinor
}

// Checker emits a blocking finding when bordereau and statement totals
// diverge beyond tolerance. All comparisons run on minor-unit integers.
type Checker struct {
	statements refdata.StatementStore
	tolerance  Tolerance
	logger     *slog.Logger
}

// New builds a discrepancy checker.
func New(statements refdata.StatementStore, tolerance Tolerance, logger *slog.Logger) *Checker {
	return &Checker{statements: statements, tolerance: tolerance, logger: logger}
}

// Check compares the post-aggregation bordereau sum for the claim's
// underwriting year against the cedant statement total. Silence means pass.
// A cedant with no statement on file for the year is not comparable yet and
// passes; the statement arrives on its own cadence.
func (c *Checker) Check(ctx context.Context, record models.ClaimRecord, bordereauSum domain.Money) ([]models.Finding, error) {
	statementTotal, err := c.statements.Total(ctx, record.ID.Cedant, record.UnderwritingYear)
	if errors.Is(err, sentinel.ErrNotFound) {
		if c.logger != nil {
			c.logger.DebugContext(ctx, "no cedant statement on file, skipping discrepancy check",
				"cedant", string(record.ID.Cedant),
				"uw_year", int(record.UnderwritingYear),
			)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup statement total: %w", err)
	}

	diff, err := bordereauSum.Sub(statementTotal)
	if err != nil {
		return nil, fmt.Errorf("compare totals: %w", err)
	}

	allowance := c.tolerance.Allowance(statementTotal)
	overage := diff.Abs().MinorUnits
	if overage <= allowance {
		return nil, nil
	}

	return []models.Finding{{
		Check:    models.CheckDiscrepancy,
		Kind:     models.KindStatementMismatch,
		Claim:    record.ID,
		Severity: models.SeverityBlocking,
		Message: fmt.Sprintf("bordereau sum %s diverges from statement total %s by %s (allowance %s)",
			bordereauSum, statementTotal,
			domain.NewMoney(overage, bordereauSum.Currency),
			domain.NewMoney(allowance, bordereauSum.Currency)),
		Evidence: map[string]string{
			"uw_year":         fmt.Sprintf("%d", int(record.UnderwritingYear)),
			"bordereau_sum":   bordereauSum.String(),
			"statement_total": statementTotal.String(),
			"difference":      domain.NewMoney(overage, bordereauSum.Currency).String(),
			"allowance":       domain.NewMoney(allowance, bordereauSum.Currency).String(),
		},
	}}, nil
}
