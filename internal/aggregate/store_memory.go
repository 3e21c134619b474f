package aggregate

import (
	"context"
	"fmt"
	"sync"

	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// InMemoryStore implements Store with per-key accumulators. Suitable for
// single-node deployments and tests; use the Postgres store when the engine
// runs replicated.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[domain.AggregateKey]*accumulator
}

// accumulator holds one running sum plus the identities already folded in,
// making re-delivery safe. Its own mutex serializes the read-modify-write;
// the version lets readers detect stale snapshots.
type accumulator struct {
	mu         sync.Mutex
	total      int64
	currency   string
	version    int64
	claimCount int
	applied    map[string]struct{}
}

// NewInMemoryStore creates an empty accumulator table.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{keys: make(map[domain.AggregateKey]*accumulator)}
}

// Apply folds the claim's amount into the key's accumulator. Idempotent by
// claim identity: a claim already present leaves the sum and version alone.
func (s *InMemoryStore) Apply(ctx context.Context, key domain.AggregateKey, claim domain.ClaimID, amount domain.Money) (Snapshot, error) {
	if claim.IsZero() {
		return Snapshot{}, fmt.Errorf("apply %s: claim identity is required", key)
	}

	acc := s.getOrCreate(key, amount.Currency)

	acc.mu.Lock()
	defer acc.mu.Unlock()

	if acc.currency != amount.Currency {
		return Snapshot{}, &CurrencyMismatchError{Key: key, Got: amount.Currency, Want: acc.currency}
	}

	if _, seen := acc.applied[claim.String()]; !seen {
		acc.applied[claim.String()] = struct{}{}
		acc.total += amount.MinorUnits
		acc.claimCount++
		acc.version++
	}

	return acc.snapshot(key), nil
}

// Get returns the current snapshot for key.
func (s *InMemoryStore) Get(ctx context.Context, key domain.AggregateKey) (Snapshot, error) {
	s.mu.RLock()
	acc := s.keys[key]
	s.mu.RUnlock()

	if acc == nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", key, sentinel.ErrNotFound)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.snapshot(key), nil
}

func (s *InMemoryStore) getOrCreate(key domain.AggregateKey, currency string) *accumulator {
	s.mu.RLock()
	acc := s.keys[key]
	s.mu.RUnlock()
	if acc != nil {
		return acc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if acc = s.keys[key]; acc != nil {
		return acc
	}
	acc = &accumulator{
		currency: currency,
		applied:  make(map[string]struct{}),
	}
	s.keys[key] = acc
	return acc
}

// snapshot must be called while holding acc.mu.
func (acc *accumulator) snapshot(key domain.AggregateKey) Snapshot {
	return Snapshot{
		Key:        key,
		Total:      domain.NewMoney(acc.total, acc.currency),
		ClaimCount: acc.claimCount,
		Version:    acc.version,
	}
}
