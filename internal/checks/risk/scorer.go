// Package risk scores claims against rule-based fraud indicators. The score
// is deterministic: the same claim always scores the same, so re-processing
// never changes a verdict's risk component.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
)

// Trigger weights. Individually none blocks; the sum routes the claim to
// supervisor review once it crosses the advisory threshold.
const (
	weightHighAmount     = 0.3
	weightRecentLoss     = 0.2
	weightLowConfidence  = 0.2
	weightPlaceholderRef = 0.1
)

// recentLossWindow is how close a date of loss may sit to submission before
// it reads as potential backdating.
const recentLossWindow = 7 * 24 * time.Hour

// placeholderValues are the junk strings cedants file when they have no real
// reference to hand.
var placeholderValues = map[string]struct{}{
	"":        {},
	"unknown": {},
	"tbd":     {},
	"n/a":     {},
	"na":      {},
	"none":    {},
}

// Scorer computes the rule-based risk score for a claim.
type Scorer struct {
	amountCeiling domain.Money // paid losses above this trigger the high-amount rule
	threshold     float64      // scores at or above this produce an advisory finding
	logger        *slog.Logger
}

// New builds a scorer. threshold is the advisory cut-off in [0,1].
func New(amountCeiling domain.Money, threshold float64, logger *slog.Logger) *Scorer {
	return &Scorer{amountCeiling: amountCeiling, threshold: threshold, logger: logger}
}

// Score returns the claim's risk score and the triggers that contributed.
func (s *Scorer) Score(record models.ClaimRecord) (float64, []string) {
	score := 0.0
	var triggers []string

	if s.amountCeiling.MinorUnits > 0 &&
		record.PaidLoss.Currency == s.amountCeiling.Currency &&
		record.PaidLoss.MinorUnits > s.amountCeiling.MinorUnits {
		score += weightHighAmount
		triggers = append(triggers, "high claim amount")
	}

	if !record.DateOfLoss.IsZero() && !record.ReceivedAt.IsZero() {
		if record.ReceivedAt.Sub(record.DateOfLoss) < recentLossWindow {
			score += weightRecentLoss
			triggers = append(triggers, "loss reported within days of occurrence")
		}
	}

	if len(record.LowConfidenceFields) > 0 {
		score += weightLowConfidence
		triggers = append(triggers, "low-confidence field extraction")
	}

	ref := strings.ToLower(strings.TrimSpace(string(record.BrokerRef)))
	if _, ok := placeholderValues[ref]; ok {
		score += weightPlaceholderRef
		triggers = append(triggers, "placeholder broker reference")
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, triggers
}

// Check scores the claim and emits an advisory finding when the score
// reaches the configured threshold. Risk never blocks on its own.
func (s *Scorer) Check(ctx context.Context, record models.ClaimRecord) ([]models.Finding, error) {
	score, triggers := s.Score(record)
	if score < s.threshold {
		return nil, nil
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "risk threshold reached",
			"claim", record.ID.String(),
			"score", score,
			"triggers", strings.Join(triggers, ", "),
		)
	}

	return []models.Finding{{
		Check:    models.CheckRisk,
		Kind:     models.KindHighRisk,
		Claim:    record.ID,
		Severity: models.SeverityAdvisory,
		Message:  fmt.Sprintf("risk score %.2f (%s) requires supervisor review", score, models.RiskLevelFor(score)),
		Evidence: map[string]string{
			"score":    fmt.Sprintf("%.2f", score),
			"level":    string(models.RiskLevelFor(score)),
			"triggers": strings.Join(triggers, "; "),
		},
	}}, nil
}
