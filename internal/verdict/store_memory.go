package verdict

import (
	"context"
	"sort"
	"sync"

	"bordero/internal/claims/models"
	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// InMemoryStore keeps verdicts in a mutex-guarded map. Used in tests and
// single-node deployments without Postgres.
type InMemoryStore struct {
	mu       sync.RWMutex
	verdicts map[domain.ClaimID]models.Verdict
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{verdicts: make(map[domain.ClaimID]models.Verdict)}
}

func (s *InMemoryStore) Get(_ context.Context, claim domain.ClaimID) (models.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verdicts[claim]
	if !ok {
		return models.Verdict{}, sentinel.ErrNotFound
	}
	return v, nil
}

func (s *InMemoryStore) Save(_ context.Context, verdict models.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.verdicts[verdict.Claim]
	if !exists {
		if verdict.Version != 1 {
			return sentinel.ErrConflict
		}
		s.verdicts[verdict.Claim] = verdict
		return nil
	}
	if verdict.Version != current.Version+1 {
		return sentinel.ErrConflict
	}
	s.verdicts[verdict.Claim] = verdict
	return nil
}

func (s *InMemoryStore) ListByState(_ context.Context, state models.VerdictState) ([]models.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Verdict
	for _, v := range s.verdicts {
		if v.State == state {
			out = append(out, v)
		}
	}
	// Oldest first so the review queue is fair.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) CountByState(_ context.Context) (map[models.VerdictState]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.VerdictState]int)
	for _, v := range s.verdicts {
		counts[v.State]++
	}
	return counts, nil
}
