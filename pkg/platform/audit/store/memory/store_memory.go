package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bordero/pkg/domain"
	audit "bordero/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.ClaimID][]audit.Event
	seen   map[uuid.UUID]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[domain.ClaimID][]audit.Event),
		seen:   make(map[uuid.UUID]struct{}),
	}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.ClaimID][]audit.Event)
	s.seen = make(map[uuid.UUID]struct{})
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(event)
	return nil
}

// AppendWithID is idempotent: an event ID already stored is ignored.
func (s *InMemoryStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[eventID]; dup {
		return nil
	}
	event.ID = eventID
	s.append(event)
	return nil
}

// append records the event. Must hold s.mu.
func (s *InMemoryStore) append(event audit.Event) {
	if event.ID != uuid.Nil {
		s.seen[event.ID] = struct{}{}
	}
	s.events[event.Claim] = append(s.events[event.Claim], event)
}

func (s *InMemoryStore) ListByClaim(_ context.Context, claim domain.ClaimID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[claim]...), nil
}

// ListRecent returns the most recent N events across all claims.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, claimEvents := range s.events {
		all = append(all, claimEvents...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
