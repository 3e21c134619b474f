// Package duplicate fingerprints claims and matches them against a history
// of previously accepted fingerprints. The history is scoped to a retention
// window since claim numbers legitimately repeat across distant years.
package duplicate

import (
	"context"
	"strings"
	"time"

	"bordero/pkg/domain"
)

// Fingerprint captures the three identity-bearing fields of a claim in both
// raw and normalized form. Raw equality on all three is a hard duplicate;
// normalized equality with exactly one field differing in formatting is a
// soft one routed to supervisor review.
type Fingerprint struct {
	Claim domain.ClaimID `json:"claim"`

	Number string `json:"number"`
	Loss   string `json:"loss"` // date of loss, YYYY-MM-DD
	Ref    string `json:"ref"`  // broker/cedant reference

	NormNumber string `json:"norm_number"`
	NormLoss   string `json:"norm_loss"`
	NormRef    string `json:"norm_ref"`

	SeenAt time.Time `json:"seen_at"`
}

// NewFingerprint derives the fingerprint for a claim.
func NewFingerprint(id domain.ClaimID, dateOfLoss time.Time, ref domain.BrokerRef, seenAt time.Time) Fingerprint {
	loss := dateOfLoss.Format(time.DateOnly)
	return Fingerprint{
		Claim:      id,
		Number:     string(id.Number),
		Loss:       loss,
		Ref:        string(ref),
		NormNumber: normalize(string(id.Number)),
		NormLoss:   loss, // dates are already canonical after normalization
		NormRef:    normalize(string(ref)),
		SeenAt:     seenAt,
	}
}

// normalize collapses the formatting noise cedants introduce: case and all
// interior whitespace.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// match classifies the relation between two fingerprints. The comparison is
// symmetric: match(a, b) == match(b, a).
type matchKind int

const (
	matchNone matchKind = iota
	matchFormatting
	matchExact
)

func match(a, b Fingerprint) matchKind {
	raw := 0
	if a.Number == b.Number {
		raw++
	}
	if a.Loss == b.Loss {
		raw++
	}
	if a.Ref == b.Ref {
		raw++
	}
	if raw == 3 {
		return matchExact
	}

	norm := 0
	if a.NormNumber == b.NormNumber {
		norm++
	}
	if a.NormLoss == b.NormLoss {
		norm++
	}
	if a.NormRef == b.NormRef {
		norm++
	}
	// Two fields identical, the third equal once formatting is stripped.
	if raw == 2 && norm == 3 {
		return matchFormatting
	}
	return matchNone
}

// HistoryStore is the fingerprint history. Same upsert discipline as the
// aggregate store: recording is idempotent by claim identity, and concurrent
// records of distinct claims never lose an entry.
//
// Candidates is indexed by normalized claim number: every match kind requires
// the claim number to agree at least after formatting, so the index is
// complete for the matching rules above.
type HistoryStore interface {
	Candidates(ctx context.Context, normNumber string) ([]Fingerprint, error)
	Record(ctx context.Context, fp Fingerprint) error
}
