// Package consumer materializes audit events from Kafka into the queryable
// audit_events table. Kafka is the source of truth; this view exists so the
// review and audit endpoints can serve reads without replaying the topic.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"bordero/pkg/domain"
	audit "bordero/pkg/platform/audit"
)

// wirePayload mirrors the outbox JSON written by the postgres store.
type wirePayload struct {
	ID          string          `json:"ID"`
	Timestamp   string          `json:"Timestamp"`
	CedantID    string          `json:"CedantID"`
	ClaimNumber string          `json:"ClaimNumber"`
	Action      string          `json:"Action"`
	Actor       string          `json:"Actor"`
	Decision    string          `json:"Decision"`
	Reason      string          `json:"Reason"`
	RequestID   string          `json:"RequestID"`
	Findings    json.RawMessage `json:"Findings"`
}

// Consumer reads the audit topic and appends events idempotently.
type Consumer struct {
	client *kgo.Client
	store  audit.Store
	logger *slog.Logger
}

// New constructs a consumer over an already-subscribed Kafka client.
func New(client *kgo.Client, store audit.Store, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, store: store, logger: logger}
}

// Run polls until the context is cancelled. Malformed records are logged and
// skipped; store failures stop the run so offsets are not committed past a
// write the materialized view never saw.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return fmt.Errorf("poll audit topic: %w", errs[0].Err)
		}

		var storeErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if storeErr != nil {
				return
			}
			event, eventID, err := decode(record.Value)
			if err != nil {
				c.logger.WarnContext(ctx, "skip malformed audit record",
					"offset", record.Offset,
					"error", err,
				)
				return
			}
			storeErr = c.store.AppendWithID(ctx, eventID, event)
		})
		if storeErr != nil {
			return fmt.Errorf("materialize audit event: %w", storeErr)
		}
	}
}

func decode(value []byte) (audit.Event, uuid.UUID, error) {
	var payload wirePayload
	if err := json.Unmarshal(value, &payload); err != nil {
		return audit.Event{}, uuid.Nil, fmt.Errorf("decode payload: %w", err)
	}

	eventID, err := uuid.Parse(payload.ID)
	if err != nil {
		return audit.Event{}, uuid.Nil, fmt.Errorf("parse event id: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
	if err != nil {
		return audit.Event{}, uuid.Nil, fmt.Errorf("parse timestamp: %w", err)
	}

	return audit.Event{
		ID:        eventID,
		Timestamp: ts,
		Claim: domain.ClaimID{
			Cedant: domain.CedantID(payload.CedantID),
			Number: domain.ClaimNumber(payload.ClaimNumber),
		},
		Action:    audit.Action(payload.Action),
		Actor:     payload.Actor,
		Decision:  payload.Decision,
		Reason:    payload.Reason,
		RequestID: payload.RequestID,
		Findings:  payload.Findings,
	}, eventID, nil
}
