// Package handler wires the claim submission endpoints to the pipeline
// engine. It stays thin: decode, delegate, translate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bordero/internal/claims/models"
	"bordero/internal/engine"
	"bordero/internal/normalizer"
	"bordero/pkg/domain"
	"bordero/pkg/platform/httputil"
	"bordero/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/engine_mock.go -package=mocks Engine,VerdictReader

// Engine defines the pipeline operations the handler needs.
type Engine interface {
	Process(ctx context.Context, sub normalizer.Submission) (models.Verdict, error)
	ProcessBatch(ctx context.Context, subs []normalizer.Submission, workers int) []engine.BatchResult
	Snapshot(ctx context.Context) (engine.StatsSnapshot, error)
}

// VerdictReader looks a claim's verdict up by identity.
type VerdictReader interface {
	Get(ctx context.Context, claim domain.ClaimID) (models.Verdict, error)
}

// Handler wires claim endpoints to the engine.
type Handler struct {
	engine   Engine
	verdicts VerdictReader
	workers  int
	logger   *slog.Logger
}

// New constructs a claims handler. workers bounds batch concurrency.
func New(engine Engine, verdicts VerdictReader, workers int, logger *slog.Logger) *Handler {
	if workers <= 0 {
		workers = 1
	}
	return &Handler{engine: engine, verdicts: verdicts, workers: workers, logger: logger}
}

// Register mounts claim endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.HandleSubmit)
	r.Post("/claims/batch", h.HandleSubmitBatch)
	r.Get("/claims/{cedantID}/{claimNumber}", h.HandleGet)
	r.Get("/stats", h.HandleStats)
}

// HandleSubmit handles POST /claims requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict, err := h.engine.Process(ctx, req.Submission())
	if err != nil {
		h.logger.WarnContext(ctx, "claim processing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "claim submitted",
		"request_id", requestID,
		"claim", verdict.Claim.String(),
		"state", string(verdict.State),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromVerdict(verdict))
}

// HandleSubmitBatch handles POST /claims/batch requests. Per-submission
// failures are reported in the response body, not as an HTTP error: one bad
// bordereau row must not discard the rest of the batch.
func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	subs := make([]normalizer.Submission, len(req.Submissions))
	for i := range req.Submissions {
		subs[i] = req.Submissions[i].Submission()
	}

	results := h.engine.ProcessBatch(ctx, subs, h.workers)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	h.logger.InfoContext(ctx, "batch processed",
		"request_id", requestID,
		"submissions", len(subs),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromBatch(results))
}

// HandleGet handles GET /claims/{cedantID}/{claimNumber} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claim, err := claimIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verdict, err := h.verdicts.Get(ctx, claim)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerdict(verdict))
}

// HandleStats handles GET /stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Snapshot(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// claimIDFromURL parses the claim identity path segments.
func claimIDFromURL(r *http.Request) (domain.ClaimID, error) {
	cedant, err := domain.ParseCedantID(chi.URLParam(r, "cedantID"))
	if err != nil {
		return domain.ClaimID{}, err
	}
	number, err := domain.ParseClaimNumber(chi.URLParam(r, "claimNumber"))
	if err != nil {
		return domain.ClaimID{}, err
	}
	return domain.ClaimID{Cedant: cedant, Number: number}, nil
}
