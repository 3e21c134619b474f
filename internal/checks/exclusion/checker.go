// Package exclusion evaluates treaty exclusion clauses against a claim's
// benefit type and conditions. Policy is deny-by-exclusion: a claim with no
// applicable treaty slip has no coverage assumption and blocks.
package exclusion

import (
	"context"
	"fmt"

	"bordero/internal/claims/models"
	"bordero/internal/refdata"
)

// Checker matches claims against treaty exclusion predicate sets.
type Checker struct{}

// New builds an exclusion checker.
func New() *Checker {
	return &Checker{}
}

// Check evaluates every exclusion clause; each match blocks separately so the
// supervisor sees all applicable exclusions, not just the first. A nil slip
// means no treaty was found for the claim.
func (c *Checker) Check(ctx context.Context, record models.ClaimRecord, slip *refdata.TreatySlip) ([]models.Finding, error) {
	if slip == nil {
		return []models.Finding{{
			Check:    models.CheckExclusion,
			Kind:     models.KindMissingTreaty,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message:  fmt.Sprintf("no treaty slip found for treaty %q; no treaty, no coverage", record.TreatyID),
			Evidence: map[string]string{"treaty_id": string(record.TreatyID)},
		}}, nil
	}

	var findings []models.Finding
	for _, clause := range slip.Exclusions {
		if !clause.Matches(record.BenefitType, record.Conditions) {
			continue
		}
		findings = append(findings, models.Finding{
			Check:    models.CheckExclusion,
			Kind:     models.KindExclusionMatch,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message:  fmt.Sprintf("claim matches treaty exclusion: %s", clause.Description),
			Evidence: map[string]string{
				"treaty_id":        string(slip.ID),
				"benefit_type":     record.BenefitType.String(),
				"excluded_benefit": clause.Benefit.String(),
				"condition":        clause.Condition,
			},
		})
	}
	return findings, nil
}
