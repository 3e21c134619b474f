package refdata

import (
	"context"
	"fmt"
	"sync"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// StatementStore looks up cedant-statement totals by (cedant, underwriting
// year). The discrepancy check compares these against bordereau-derived sums.
type StatementStore interface {
	Total(ctx context.Context, cedant domain.CedantID, year domain.UnderwritingYear) (domain.Money, error)
}

type statementKey struct {
	cedant domain.CedantID
	year   domain.UnderwritingYear
}

// InMemoryStatementStore is a seeded, read-only statement table.
type InMemoryStatementStore struct {
	mu     sync.RWMutex
	totals map[statementKey]domain.Money
}

// NewInMemoryStatementStore builds a statement store from seed lines.
func NewInMemoryStatementStore(lines ...models.StatementLine) *InMemoryStatementStore {
	s := &InMemoryStatementStore{totals: make(map[statementKey]domain.Money, len(lines))}
	for _, line := range lines {
		s.totals[statementKey{cedant: line.Cedant, year: line.UnderwritingYear}] = line.Total
	}
	return s
}

// Total returns the statement total, or sentinel.ErrNotFound when the cedant
// has not filed a statement for that year.
func (s *InMemoryStatementStore) Total(ctx context.Context, cedant domain.CedantID, year domain.UnderwritingYear) (domain.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, ok := s.totals[statementKey{cedant: cedant, year: year}]
	if !ok {
		return domain.Money{}, fmt.Errorf("statement %s/%d: %w", cedant, year, sentinel.ErrNotFound)
	}
	return total, nil
}

// Replace swaps the full statement set on reference-data refresh.
func (s *InMemoryStatementStore) Replace(lines []models.StatementLine) {
	next := make(map[statementKey]domain.Money, len(lines))
	for _, line := range lines {
		next[statementKey{cedant: line.Cedant, year: line.UnderwritingYear}] = line.Total
	}
	s.mu.Lock()
	s.totals = next
	s.mu.Unlock()
}
