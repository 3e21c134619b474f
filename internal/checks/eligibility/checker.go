// Package eligibility validates a claim's dates against the treaty's policy
// validity window and the insured's age against the treaty age limit.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"bordero/internal/claims/models"
	"bordero/internal/refdata"
)

// Checker validates window and age eligibility rules. Each violated rule is
// a separate blocking finding so the composer reports all reasons at once.
type Checker struct{}

// New builds an eligibility checker.
func New() *Checker {
	return &Checker{}
}

// Check validates the claim against the treaty slip. A nil slip yields no
// findings here; the exclusion check already blocks on missing treaties.
func (c *Checker) Check(ctx context.Context, record models.ClaimRecord, slip *refdata.TreatySlip) ([]models.Finding, error) {
	if slip == nil {
		return nil, nil
	}

	var findings []models.Finding
	window := fmt.Sprintf("%s..%s",
		slip.ValidFrom.Format(time.DateOnly), slip.ValidTo.Format(time.DateOnly))

	if !slip.Covers(record.DateOfLoss) {
		findings = append(findings, models.Finding{
			Check:    models.CheckEligibility,
			Kind:     models.KindLossOutsideWindow,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message: fmt.Sprintf("date of loss %s falls outside policy validity window %s",
				record.DateOfLoss.Format(time.DateOnly), window),
			Evidence: map[string]string{
				"date_of_loss": record.DateOfLoss.Format(time.DateOnly),
				"window":       window,
			},
		})
	}

	if !record.PaymentDate.IsZero() && !slip.Covers(record.PaymentDate) {
		findings = append(findings, models.Finding{
			Check:    models.CheckEligibility,
			Kind:     models.KindPaymentOutsideWindow,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message: fmt.Sprintf("payment date %s falls outside policy validity window %s",
				record.PaymentDate.Format(time.DateOnly), window),
			Evidence: map[string]string{
				"payment_date": record.PaymentDate.Format(time.DateOnly),
				"window":       window,
			},
		})
	}

	if slip.AgeLimit > 0 && record.InsuredAge > slip.AgeLimit {
		findings = append(findings, models.Finding{
			Check:    models.CheckEligibility,
			Kind:     models.KindAgeLimitExceeded,
			Claim:    record.ID,
			Severity: models.SeverityBlocking,
			Message: fmt.Sprintf("insured age %d at date of loss exceeds treaty age limit %d",
				record.InsuredAge, slip.AgeLimit),
			Evidence: map[string]string{
				"insured_age": fmt.Sprintf("%d", record.InsuredAge),
				"age_limit":   fmt.Sprintf("%d", slip.AgeLimit),
			},
		})
	}

	return findings, nil
}
