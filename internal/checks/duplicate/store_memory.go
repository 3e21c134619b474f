package duplicate

import (
	"context"
	"sync"
	"time"
)

// InMemoryHistoryStore keeps fingerprints in a normalized-claim-number index.
// Entries older than the prune horizon are dropped on write so a long-running
// single-node engine doesn't grow without bound.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	byNorm  map[string]map[string]Fingerprint // normNumber -> claimID -> fp
	horizon time.Duration
}

// NewInMemoryHistoryStore creates an empty history. horizon bounds how long
// entries are kept; pass the duplicate retention window (or longer).
func NewInMemoryHistoryStore(horizon time.Duration) *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		byNorm:  make(map[string]map[string]Fingerprint),
		horizon: horizon,
	}
}

// Candidates returns retained fingerprints sharing the normalized number.
func (s *InMemoryHistoryStore) Candidates(ctx context.Context, normNumber string) ([]Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.byNorm[normNumber]
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]Fingerprint, 0, len(entries))
	for _, fp := range entries {
		out = append(out, fp)
	}
	return out, nil
}

// Record stores the fingerprint, keeping the first entry for a claim
// identity (idempotent under redelivery), and prunes expired entries.
func (s *InMemoryHistoryStore) Record(ctx context.Context, fp Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byNorm[fp.NormNumber]
	if entries == nil {
		entries = make(map[string]Fingerprint)
		s.byNorm[fp.NormNumber] = entries
	}
	if _, exists := entries[fp.Claim.String()]; !exists {
		entries[fp.Claim.String()] = fp
	}

	s.prune(fp.SeenAt)
	return nil
}

// prune drops entries older than the horizon. Must hold s.mu.
func (s *InMemoryHistoryStore) prune(now time.Time) {
	if s.horizon <= 0 {
		return
	}
	cutoff := now.Add(-s.horizon)
	for norm, entries := range s.byNorm {
		for key, fp := range entries {
			if fp.SeenAt.Before(cutoff) {
				delete(entries, key)
			}
		}
		if len(entries) == 0 {
			delete(s.byNorm, norm)
		}
	}
}
