// Package handler exposes the supervisor review endpoints: the pending queue
// and the sole path that resolves flagged claims.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bordero/internal/claims/models"
	"bordero/internal/platform/metrics"
	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	"bordero/pkg/platform/httputil"
	authmw "bordero/pkg/platform/middleware/auth"
	"bordero/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks Service

// Service defines the verdict operations the review surface needs.
type Service interface {
	ListPending(ctx context.Context) ([]models.Verdict, error)
	Decide(ctx context.Context, decision models.ReviewDecision) (models.Verdict, error)
}

// Handler wires review endpoints to the verdict service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a review handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Register mounts review endpoints on the router. The caller wraps the group
// in the supervisor auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/review/pending", h.HandlePending)
	r.Post("/review/{cedantID}/{claimNumber}/decision", h.HandleDecide)
}

// DecisionRequest is the HTTP request body for the decision endpoint.
type DecisionRequest struct {
	Approve       bool   `json:"approve"`
	Justification string `json:"justification"`
}

// Validate checks the request body.
func (r *DecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Justification = strings.TrimSpace(r.Justification)
	if r.Justification == "" {
		return dErrors.New(dErrors.CodeValidation, "justification is required")
	}
	if len(r.Justification) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "justification must be at most 2000 characters")
	}
	return nil
}

// PendingView is one row of the review queue.
type PendingView struct {
	Cedant      string    `json:"cedant_id"`
	ClaimNumber string    `json:"claim_number"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	Findings    int       `json:"findings"`
	Blocking    bool      `json:"blocking"`
	QueuedAt    time.Time `json:"queued_at"`
}

// HandlePending handles GET /review/pending requests. Oldest claims first so
// the queue drains fairly.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.service.ListPending(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views := make([]PendingView, 0, len(pending))
	for _, v := range pending {
		views = append(views, PendingView{
			Cedant:      string(v.Claim.Cedant),
			ClaimNumber: string(v.Claim.Number),
			RiskScore:   v.RiskScore,
			RiskLevel:   string(v.RiskLevel),
			Findings:    len(v.Findings),
			Blocking:    models.HasBlocking(v.Findings),
			QueuedAt:    v.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": views})
}

// HandleDecide handles POST /review/{cedantID}/{claimNumber}/decision.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	supervisor := authmw.GetSupervisor(ctx)
	if supervisor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	cedant, err := domain.ParseCedantID(chi.URLParam(r, "cedantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	number, err := domain.ParseClaimNumber(chi.URLParam(r, "claimNumber"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict, err := h.service.Decide(ctx, models.ReviewDecision{
		Claim:         domain.ClaimID{Cedant: cedant, Number: number},
		Approve:       req.Approve,
		SupervisorID:  supervisor,
		Justification: req.Justification,
		DecidedAt:     requestcontext.Now(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "review decision failed",
			"request_id", requestID,
			"supervisor", supervisor,
			"claim", cedant,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	outcome := "rejected"
	if req.Approve {
		outcome = "approved"
	}
	if h.metrics != nil {
		h.metrics.SupervisorDecisions.WithLabelValues(outcome).Inc()
	}
	h.logger.InfoContext(ctx, "review decision recorded",
		"request_id", requestID,
		"supervisor", supervisor,
		"claim", verdict.Claim.String(),
		"outcome", outcome,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"cedant_id":    string(verdict.Claim.Cedant),
		"claim_number": string(verdict.Claim.Number),
		"state":        string(verdict.State),
		"decided_by":   verdict.DecidedBy,
		"version":      verdict.Version,
	})
}
