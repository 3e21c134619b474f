package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bordero/pkg/domain"
	"bordero/pkg/platform/sentinel"
)

// PostgresStore implements Store on pgx for replicated deployments. The
// compare-and-swap discipline of the memory store maps to an optimistic
// version check inside a transaction, retried on conflict; the membership
// table keeps Apply idempotent across redeliveries and across nodes.
//
// Schema:
//
//	CREATE TABLE aggregates (
//	    key         TEXT PRIMARY KEY,
//	    currency    TEXT NOT NULL,
//	    total_minor BIGINT NOT NULL,
//	    claim_count INT NOT NULL,
//	    version     BIGINT NOT NULL
//	);
//	CREATE TABLE aggregate_claims (
//	    key      TEXT NOT NULL,
//	    claim_id TEXT NOT NULL,
//	    PRIMARY KEY (key, claim_id)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// casRetries bounds the optimistic-concurrency retry loop. Conflicts resolve
// in one or two rounds in practice; hitting the bound means the key is so hot
// the caller should back off anyway.
const casRetries = 5

// NewPostgresStore creates a Postgres-backed aggregate store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Apply folds the claim into the accumulator at key, retrying the version
// check on concurrent updates. AggregateConflict races never surface to the
// caller.
func (s *PostgresStore) Apply(ctx context.Context, key domain.AggregateKey, claim domain.ClaimID, amount domain.Money) (Snapshot, error) {
	if claim.IsZero() {
		return Snapshot{}, fmt.Errorf("apply %s: claim identity is required", key)
	}

	var lastErr error
	for range casRetries {
		snap, err := s.tryApply(ctx, key, claim, amount)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return Snapshot{}, err
		}
		lastErr = err
	}
	return Snapshot{}, fmt.Errorf("apply %s: version conflicts exhausted retries: %w", key, lastErr)
}

func (s *PostgresStore) tryApply(ctx context.Context, key domain.AggregateKey, claim domain.ClaimID, amount domain.Money) (Snapshot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Membership insert doubles as the idempotence gate: zero rows affected
	// means the claim is already folded in.
	tag, err := tx.Exec(ctx, `
		INSERT INTO aggregate_claims (key, claim_id)
		VALUES ($1, $2)
		ON CONFLICT (key, claim_id) DO NOTHING
	`, string(key), claim.String())
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert membership: %w", err)
	}

	if tag.RowsAffected() == 0 {
		snap, err := s.getTx(ctx, tx, key)
		if err != nil {
			return Snapshot{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return Snapshot{}, fmt.Errorf("commit: %w", err)
		}
		return snap, nil
	}

	var (
		currency   string
		total      int64
		claimCount int
		version    int64
		exists     = true
	)
	err = tx.QueryRow(ctx, `
		SELECT currency, total_minor, claim_count, version
		FROM aggregates WHERE key = $1
	`, string(key)).Scan(&currency, &total, &claimCount, &version)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		exists = false
	case err != nil:
		return Snapshot{}, fmt.Errorf("select aggregate: %w", err)
	}

	if exists {
		if currency != amount.Currency {
			return Snapshot{}, &CurrencyMismatchError{Key: key, Got: amount.Currency, Want: currency}
		}
		tag, err = tx.Exec(ctx, `
			UPDATE aggregates
			SET total_minor = total_minor + $1,
			    claim_count = claim_count + 1,
			    version = version + 1
			WHERE key = $2 AND version = $3
		`, amount.MinorUnits, string(key), version)
		if err != nil {
			return Snapshot{}, fmt.Errorf("update aggregate: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return Snapshot{}, fmt.Errorf("apply %s: %w", key, sentinel.ErrConflict)
		}
		total += amount.MinorUnits
		claimCount++
		version++
	} else {
		_, err = tx.Exec(ctx, `
			INSERT INTO aggregates (key, currency, total_minor, claim_count, version)
			VALUES ($1, $2, $3, 1, 1)
		`, string(key), amount.Currency, amount.MinorUnits)
		if err != nil {
			// Unique violation from a concurrent first writer: retry.
			return Snapshot{}, fmt.Errorf("apply %s: %w", key, sentinel.ErrConflict)
		}
		currency = amount.Currency
		total = amount.MinorUnits
		claimCount = 1
		version = 1
	}

	if err := tx.Commit(ctx); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}

	return Snapshot{
		Key:        key,
		Total:      domain.NewMoney(total, currency),
		ClaimCount: claimCount,
		Version:    version,
	}, nil
}

// Get returns the current snapshot for key.
func (s *PostgresStore) Get(ctx context.Context, key domain.AggregateKey) (Snapshot, error) {
	var (
		currency   string
		total      int64
		claimCount int
		version    int64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT currency, total_minor, claim_count, version
		FROM aggregates WHERE key = $1
	`, string(key)).Scan(&currency, &total, &claimCount, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("get %s: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", key, err)
	}
	return Snapshot{
		Key:        key,
		Total:      domain.NewMoney(total, currency),
		ClaimCount: claimCount,
		Version:    version,
	}, nil
}

func (s *PostgresStore) getTx(ctx context.Context, tx pgx.Tx, key domain.AggregateKey) (Snapshot, error) {
	var (
		currency   string
		total      int64
		claimCount int
		version    int64
	)
	err := tx.QueryRow(ctx, `
		SELECT currency, total_minor, claim_count, version
		FROM aggregates WHERE key = $1
	`, string(key)).Scan(&currency, &total, &claimCount, &version)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get %s: %w", key, err)
	}
	return Snapshot{
		Key:        key,
		Total:      domain.NewMoney(total, currency),
		ClaimCount: claimCount,
		Version:    version,
	}, nil
}
