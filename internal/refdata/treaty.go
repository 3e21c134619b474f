// Package refdata exposes externally supplied reference data (treaty slips
// and cedant statement totals) as read-only lookup stores. The engine never
// mutates reference data; it is loaded at startup and replaced wholesale.
package refdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// ExclusionClause is one treaty exclusion predicate. A clause matches when
// its benefit type equals the claim's (if set) and its condition appears in
// the claim's condition list (if set). A clause with both set requires both.
type ExclusionClause struct {
	Benefit     domain.BenefitType `json:"benefit,omitempty"`
	Condition   string             `json:"condition,omitempty"`
	Description string             `json:"description"`
}

// Matches evaluates the clause against a claim's benefit and conditions.
func (c ExclusionClause) Matches(benefit domain.BenefitType, conditions []string) bool {
	if c.Benefit == "" && c.Condition == "" {
		return false
	}
	if c.Benefit != "" && c.Benefit != benefit {
		return false
	}
	if c.Condition != "" {
		want := strings.ToLower(c.Condition)
		for _, cond := range conditions {
			if strings.ToLower(cond) == want {
				return true
			}
		}
		return false
	}
	return true
}

// TreatySlip is the reinsurance treaty terms relevant to validation: the
// exclusion set, the insured-age limit, the cumulative per-Parent-ID paid-loss
// limit, and the policy validity window (inclusive bounds).
type TreatySlip struct {
	ID          domain.TreatyID   `json:"id"`
	Exclusions  []ExclusionClause `json:"exclusions"`
	AgeLimit    int               `json:"age_limit"`
	ParentLimit domain.Money      `json:"parent_limit"`
	ValidFrom   time.Time         `json:"valid_from"`
	ValidTo     time.Time         `json:"valid_to"`
}

// Covers reports whether t falls inside the policy validity window,
// inclusive on both bounds.
func (s TreatySlip) Covers(t time.Time) bool {
	return !t.Before(s.ValidFrom) && !t.After(s.ValidTo)
}

// TreatyStore looks up treaty slips by ID.
type TreatyStore interface {
	Get(ctx context.Context, id domain.TreatyID) (*TreatySlip, error)
}

// InMemoryTreatyStore is a seeded, read-only treaty table.
type InMemoryTreatyStore struct {
	mu       sync.RWMutex
	treaties map[domain.TreatyID]TreatySlip
}

// NewInMemoryTreatyStore builds a treaty store from a seed set.
func NewInMemoryTreatyStore(slips ...TreatySlip) *InMemoryTreatyStore {
	s := &InMemoryTreatyStore{treaties: make(map[domain.TreatyID]TreatySlip, len(slips))}
	for _, slip := range slips {
		s.treaties[slip.ID] = slip
	}
	return s
}

// Get returns the treaty slip, or sentinel.ErrNotFound.
func (s *InMemoryTreatyStore) Get(ctx context.Context, id domain.TreatyID) (*TreatySlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slip, ok := s.treaties[id]
	if !ok {
		return nil, fmt.Errorf("treaty %s: %w", id, sentinel.ErrNotFound)
	}
	return &slip, nil
}

// Replace swaps the full treaty set. Used on reference-data refresh; readers
// always see either the old or the new set, never a mix.
func (s *InMemoryTreatyStore) Replace(slips []TreatySlip) {
	next := make(map[domain.TreatyID]TreatySlip, len(slips))
	for _, slip := range slips {
		next[slip.ID] = slip
	}
	s.mu.Lock()
	s.treaties = next
	s.mu.Unlock()
}
