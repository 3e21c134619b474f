package duplicate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bordero/internal/claims/models"
)

// Checker detects repeat claims via fingerprint history.
type Checker struct {
	history   HistoryStore
	retention time.Duration
	logger    *slog.Logger
}

// New builds a duplicate checker. Fingerprints older than retention are not
// compared even if a backing store still holds them.
func New(history HistoryStore, retention time.Duration, logger *slog.Logger) *Checker {
	return &Checker{history: history, retention: retention, logger: logger}
}

// Check compares the claim's fingerprint against retained history and then
// records it. The claim under test never matches its own history entry, so
// re-processing is quiet. Exact matches block; formatting-only matches are
// advisory and route to supervisor review to bound false positives from
// inconsistent cedant labeling.
func (c *Checker) Check(ctx context.Context, record models.ClaimRecord) ([]models.Finding, error) {
	now := record.ReceivedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	fp := NewFingerprint(record.ID, record.DateOfLoss, record.BrokerRef, now)

	candidates, err := c.history.Candidates(ctx, fp.NormNumber)
	if err != nil {
		return nil, fmt.Errorf("load fingerprint candidates: %w", err)
	}

	cutoff := now.Add(-c.retention)

	var findings []models.Finding
	for _, prior := range candidates {
		if prior.Claim == record.ID {
			continue
		}
		if prior.SeenAt.Before(cutoff) {
			continue
		}

		switch match(fp, prior) {
		case matchExact:
			findings = append(findings, models.Finding{
				Check:    models.CheckDuplicate,
				Kind:     models.KindDuplicateExact,
				Claim:    record.ID,
				Severity: models.SeverityBlocking,
				Message: fmt.Sprintf("claim number, date of loss and broker reference exactly match claim %s",
					prior.Claim),
				Evidence: map[string]string{
					"duplicate_of": prior.Claim.String(),
					"claim_number": prior.Number,
					"date_of_loss": prior.Loss,
					"broker_ref":   prior.Ref,
				},
			})
		case matchFormatting:
			findings = append(findings, models.Finding{
				Check:    models.CheckDuplicate,
				Kind:     models.KindDuplicateSimilar,
				Claim:    record.ID,
				Severity: models.SeverityAdvisory,
				Message: fmt.Sprintf("two of three identity fields match claim %s; the third differs only in formatting",
					prior.Claim),
				Evidence: map[string]string{
					"duplicate_of": prior.Claim.String(),
				},
			})
		}
	}

	if err := c.history.Record(ctx, fp); err != nil {
		return nil, fmt.Errorf("record fingerprint: %w", err)
	}

	if len(findings) > 0 && c.logger != nil {
		c.logger.InfoContext(ctx, "duplicate candidates found",
			"claim", record.ID.String(),
			"matches", len(findings),
		)
	}

	return findings, nil
}
