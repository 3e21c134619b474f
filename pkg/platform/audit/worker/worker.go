// Package worker relays audit events from the transactional outbox to Kafka.
// The relay is the only writer of outbox.published_at, so multiple engine
// instances can run it concurrently with SKIP LOCKED claiming.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay polls the outbox table and publishes pending entries to Kafka.
type Relay struct {
	db     *sql.DB
	client *kgo.Client
	topic  string
	logger *slog.Logger

	interval time.Duration
	batch    int
}

// Option configures a Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides how many outbox rows are claimed per poll.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batch = n }
}

// NewRelay constructs an outbox relay publishing to the given topic.
func NewRelay(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:       db,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; rows stay unpublished until Kafka accepts them.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.ErrorContext(ctx, "relay outbox batch", "error", err)
			}
		}
	}
}

type outboxRow struct {
	id      uuid.UUID
	key     string
	payload []byte
}

// relayBatch claims a batch of unpublished rows, produces them, and marks
// them published in the same transaction. If the produce fails the
// transaction rolls back and the rows are retried later.
func (r *Relay) relayBatch(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batch)
	if err != nil {
		return fmt.Errorf("claim outbox rows: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.key, &row.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate outbox rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(pending))
	ids := make([]uuid.UUID, 0, len(pending))
	for _, row := range pending {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.key),
			Value: row.payload,
		})
		ids = append(ids, row.id)
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)
	`, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox tx: %w", err)
	}

	r.logger.DebugContext(ctx, "relayed audit events", "count", len(pending))
	return nil
}
