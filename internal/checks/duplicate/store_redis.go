package duplicate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for fingerprint sets, one hash per normalized claim number.
	fingerprintKeyPrefix = "dup:fp:"
)

// RedisHistoryStore is a Redis-backed implementation of HistoryStore.
// This is the production implementation for distributed deployments where
// multiple engine instances need to share duplicate-detection state.
//
// Each normalized claim number maps to a hash whose fields are claim
// identities and whose values are JSON-encoded fingerprints. HSetNX keeps
// Record idempotent under redelivery, and the hash TTL enforces the
// retention window.
type RedisHistoryStore struct {
	client    *redis.Client
	retention time.Duration
}

// RedisHistoryStoreOption configures a RedisHistoryStore instance.
type RedisHistoryStoreOption func(*RedisHistoryStore)

// NewRedisHistoryStore constructs a Redis-backed fingerprint history.
// retention bounds how long fingerprints stay eligible as candidates.
func NewRedisHistoryStore(client *redis.Client, retention time.Duration, opts ...RedisHistoryStoreOption) *RedisHistoryStore {
	s := &RedisHistoryStore{
		client:    client,
		retention: retention,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Candidates returns all retained fingerprints sharing the normalized number.
func (s *RedisHistoryStore) Candidates(ctx context.Context, normNumber string) ([]Fingerprint, error) {
	key := fingerprintKeyPrefix + normNumber
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch fingerprint candidates: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	out := make([]Fingerprint, 0, len(fields))
	for _, raw := range fields {
		var fp Fingerprint
		if err := json.Unmarshal([]byte(raw), &fp); err != nil {
			return nil, fmt.Errorf("decode stored fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	return out, nil
}

// Record stores the fingerprint if its claim identity has not been seen
// under this normalized number, then refreshes the retention TTL.
func (s *RedisHistoryStore) Record(ctx context.Context, fp Fingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("encode fingerprint: %w", err)
	}

	key := fingerprintKeyPrefix + fp.NormNumber
	pipe := s.client.Pipeline()
	pipe.HSetNX(ctx, key, fp.Claim.String(), raw)
	if s.retention > 0 {
		pipe.Expire(ctx, key, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// Close is a no-op; the client lifecycle is managed externally.
func (s *RedisHistoryStore) Close() {}
