// Package aggregate maintains running paid-loss sums keyed by underwriting
// year and by treaty Parent-ID. The store is the engine's only shared mutable
// state besides the duplicate fingerprint history, so it carries the
// consistency guarantees the checkers rely on:
//
//   - idempotent by claim identity: applying the same claim twice has no
//     additional effect (each accumulator remembers which claims it folded in)
//   - lossless under concurrency: concurrent applications of distinct claims
//     never drop an update
//   - versioned: every mutation bumps a per-key version so downstream checks
//     can tell a stale snapshot from a current one
package aggregate

import (
	"context"
	"fmt"

	"bordero/pkg/domain"
)

// CurrencyMismatchError reports a claim whose paid-loss currency differs from
// the currency an accumulator was opened with. Accumulators are
// single-currency; the engine surfaces this as a blocking finding so the
// claim lands in review instead of corrupting the running sum.
type CurrencyMismatchError struct {
	Key  domain.AggregateKey
	Got  string
	Want string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("apply %s: currency %s does not match accumulator currency %s",
		e.Key, e.Got, e.Want)
}

// Snapshot is a point-in-time view of one accumulator. Owned exclusively by
// the store; checkers only read snapshots.
type Snapshot struct {
	Key        domain.AggregateKey `json:"key"`
	Total      domain.Money        `json:"total"`
	ClaimCount int                 `json:"claim_count"`
	Version    int64               `json:"version"`
}

// Store is the keyed accumulator table. Implementations must satisfy the
// idempotence and concurrency guarantees in the package comment.
type Store interface {
	// Apply folds a claim's paid loss into the accumulator at key and returns
	// the post-update snapshot. Re-applying an already-folded claim returns
	// the current snapshot unchanged.
	Apply(ctx context.Context, key domain.AggregateKey, claim domain.ClaimID, amount domain.Money) (Snapshot, error)

	// Get returns the current snapshot for key, or sentinel.ErrNotFound.
	Get(ctx context.Context, key domain.AggregateKey) (Snapshot, error)
}
