package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bordero/pkg/domain"
	audit "bordero/pkg/platform/audit"
	txcontext "bordero/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the
// outbox worker; the consumer side materializes them into audit_events
// via AppendWithID. Kafka is the source of truth for the audit trail.
// Deployments without a relay enable WithMirroredEvents so reads work
// straight off the database.
//
// Schema:
//
//	CREATE TABLE outbox (
//	    id             UUID PRIMARY KEY,
//	    aggregate_type TEXT NOT NULL,
//	    aggregate_id   TEXT NOT NULL,
//	    event_type     TEXT NOT NULL,
//	    payload        JSONB NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    published_at   TIMESTAMPTZ
//	);
//
//	CREATE TABLE audit_events (
//	    id           UUID PRIMARY KEY,
//	    timestamp    TIMESTAMPTZ NOT NULL,
//	    cedant_id    TEXT NOT NULL,
//	    claim_number TEXT NOT NULL,
//	    action       TEXT NOT NULL,
//	    actor        TEXT NOT NULL DEFAULT '',
//	    decision     TEXT NOT NULL DEFAULT '',
//	    reason       TEXT NOT NULL DEFAULT '',
//	    request_id   TEXT NOT NULL DEFAULT '',
//	    findings     JSONB
//	);
//	CREATE INDEX audit_events_claim_idx ON audit_events (cedant_id, claim_number, timestamp);
type Store struct {
	db     *sql.DB
	mirror bool
}

// Option configures a Store.
type Option func(*Store)

// WithMirroredEvents makes Append also materialize the event into
// audit_events directly. Used when no Kafka relay runs: the outbox row still
// lands for a later relay to pick up, but queries serve from the mirror
// immediately.
func WithMirroredEvents() Option {
	return func(s *Store) { s.mirror = true }
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization by the consumer.
type outboxPayload struct {
	ID          string          `json:"ID"`
	Timestamp   string          `json:"Timestamp"`
	CedantID    string          `json:"CedantID"`
	ClaimNumber string          `json:"ClaimNumber"`
	Action      string          `json:"Action"`
	Actor       string          `json:"Actor,omitempty"`
	Decision    string          `json:"Decision,omitempty"`
	Reason      string          `json:"Reason,omitempty"`
	RequestID   string          `json:"RequestID,omitempty"`
	Findings    json.RawMessage `json:"Findings,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}

	payload := outboxPayload{
		ID:          eventID.String(),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		CedantID:    string(event.Claim.Cedant),
		ClaimNumber: string(event.Claim.Number),
		Action:      string(event.Action),
		Actor:       event.Actor,
		Decision:    event.Decision,
		Reason:      event.Reason,
		RequestID:   event.RequestID,
		Findings:    event.Findings,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		"claim",
		event.Claim.String(),
		string(event.Action),
		payloadBytes,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	if s.mirror {
		return s.AppendWithID(ctx, eventID, event)
	}
	return nil
}

// AppendWithID inserts an audit event into the audit_events table with a
// specific ID. Used by the Kafka consumer to materialize events for
// querying. Idempotent via ON CONFLICT DO NOTHING.
func (s *Store) AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, timestamp, cedant_id, claim_number, action,
			actor, decision, reason, request_id, findings
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	var findings any
	if len(event.Findings) > 0 {
		findings = []byte(event.Findings)
	}

	_, err := s.execer(ctx).ExecContext(ctx, query,
		eventID,
		event.Timestamp,
		string(event.Claim.Cedant),
		string(event.Claim.Number),
		string(event.Action),
		event.Actor,
		event.Decision,
		event.Reason,
		event.RequestID,
		findings,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByClaim returns the claim's events in timestamp order, oldest first,
// so callers can replay the decision history directly.
func (s *Store) ListByClaim(ctx context.Context, claim domain.ClaimID) ([]audit.Event, error) {
	query := `
		SELECT id, timestamp, cedant_id, claim_number, action,
			   actor, decision, reason, request_id, findings
		FROM audit_events
		WHERE cedant_id = $1 AND claim_number = $2
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(claim.Cedant), string(claim.Number))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events across all claims.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, timestamp, cedant_id, claim_number, action,
			   actor, decision, reason, request_id, findings
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event    audit.Event
			cedant   string
			number   string
			action   string
			findings []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&cedant,
			&number,
			&action,
			&event.Actor,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&findings,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Claim = domain.ClaimID{
			Cedant: domain.CedantID(cedant),
			Number: domain.ClaimNumber(number),
		}
		event.Action = audit.Action(action)
		if len(findings) > 0 {
			event.Findings = json.RawMessage(findings)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}
