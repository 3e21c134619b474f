package sics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dErrors "bordero/pkg/domain-errors"
	"bordero/pkg/platform/circuit"
)

const defaultTimeout = 10 * time.Second

// Client is the HTTP implementation of Poster. Transient failures are
// retried with exponential backoff; repeated failures open a circuit breaker
// so a down ledger doesn't hold claim workers hostage.
type Client struct {
	http       *http.Client
	baseURL    string
	maxRetries int
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMaxRetries overrides how many attempts are made per posting.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// NewClient constructs a posting client against the given base URL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		maxRetries: 3,
		breaker:    circuit.New("sics", circuit.WithFailureThreshold(5)),
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// PostClaim books the claim downstream. It returns a CodeUnavailable error
// when the circuit is open or all attempts fail; callers keep the claim in
// its current state and retry later.
func (c *Client) PostClaim(ctx context.Context, posting ClaimPosting) (PostingResult, error) {
	var result PostingResult
	if err := c.postJSON(ctx, "/claims", posting, &result); err != nil {
		return PostingResult{}, err
	}
	return result, nil
}

// PostCreditNote issues the cedant credit note for a booked claim. Notes
// ride the same breaker and retry discipline as postings.
func (c *Client) PostCreditNote(ctx context.Context, note CreditNote) error {
	return c.postJSON(ctx, "/credit-notes", note, nil)
}

// postJSON runs one request through the breaker and retry loop, decoding the
// response into out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	if c.breaker.IsOpen() {
		return dErrors.New(dErrors.CodeUnavailable, "posting service circuit open")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal posting payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.post(ctx, path, body, out)
		if err == nil {
			if _, change := c.breaker.RecordSuccess(); change.Closed {
				c.logger.InfoContext(ctx, "posting circuit closed")
			}
			return nil
		}
		lastErr = err

		useFallback, change := c.breaker.RecordFailure()
		if change.Opened {
			c.logger.ErrorContext(ctx, "posting circuit opened", "error", err)
		}
		c.logger.WarnContext(ctx, "posting attempt failed",
			"attempt", attempt+1,
			"path", path,
			"error", err,
		)
		if useFallback {
			break
		}
	}

	return dErrors.Wrap(lastErr, dErrors.CodeUnavailable, "posting service unavailable")
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build posting request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send posting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for diagnostics without trusting it.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("posting rejected: status %d: %s", resp.StatusCode, snippet)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode posting result: %w", err)
	}
	return nil
}
