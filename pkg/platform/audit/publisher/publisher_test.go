package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bordero/pkg/domain"
	audit "bordero/pkg/platform/audit"
	"bordero/pkg/platform/audit/store/memory"
)

func claimID(n string) domain.ClaimID {
	return domain.ClaimID{Cedant: "CED-01", Number: domain.ClaimNumber(n)}
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	claim := claimID("CLM-1")
	err := pub.Emit(context.Background(), audit.Event{
		Claim:  claim,
		Action: audit.ActionClaimReceived,
	})
	require.NoError(t, err)

	events, err := pub.ListByClaim(context.Background(), claim)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionClaimReceived, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is stamped on emit")
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	claim := claimID("CLM-2")
	err := pub.Emit(context.Background(), audit.Event{
		Claim:  claim,
		Action: audit.ActionChecksCompleted,
	})
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.ListByClaim(context.Background(), claim)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionChecksCompleted, events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	claim := claimID("CLM-3")
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Claim:  claim,
			Action: audit.ActionClaimReceived,
		})
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByClaim(context.Background(), claim)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	pub.Close()
	pub.Close()
}

func TestPublisher_ListRecent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		err := pub.Emit(context.Background(), audit.Event{
			Claim:     claimID("CLM-4"),
			Action:    audit.ActionClaimReceived,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	events, err := pub.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, base.Add(4*time.Minute), events[0].Timestamp, "most recent first")
}
