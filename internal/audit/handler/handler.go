// Package handler exposes the audit trail read endpoints. The trail is
// append-only; these endpoints only ever read.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bordero/pkg/domain"
	dErrors "bordero/pkg/domain-errors"
	audit "bordero/pkg/platform/audit"
	"bordero/pkg/platform/httputil"
)

// defaultRecentLimit bounds GET /audit/recent when the caller omits one.
const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Handler wires audit trail endpoints to the audit store.
type Handler struct {
	store  audit.Store
	logger *slog.Logger
}

// New constructs an audit handler.
func New(store audit.Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts audit endpoints on the router. The caller wraps the group
// in the supervisor auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/claims/{cedantID}/{claimNumber}", h.HandleByClaim)
	r.Get("/audit/recent", h.HandleRecent)
}

// EventView is the wire shape of one audit event.
type EventView struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Cedant      string    `json:"cedant_id"`
	ClaimNumber string    `json:"claim_number"`
	Action      string    `json:"action"`
	Actor       string    `json:"actor"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	// Findings carries the check findings JSON verbatim when the event
	// recorded any, so exports replay without a second lookup.
	Findings json.RawMessage `json:"findings,omitempty"`
}

func fromEvents(events []audit.Event) []EventView {
	views := make([]EventView, 0, len(events))
	for _, e := range events {
		views = append(views, EventView{
			ID:          e.ID.String(),
			Timestamp:   e.Timestamp,
			Cedant:      string(e.Claim.Cedant),
			ClaimNumber: string(e.Claim.Number),
			Action:      string(e.Action),
			Actor:       e.Actor,
			Decision:    e.Decision,
			Reason:      e.Reason,
			RequestID:   e.RequestID,
			Findings:    e.Findings,
		})
	}
	return views
}

// HandleByClaim handles GET /audit/claims/{cedantID}/{claimNumber}: the full
// trail of one claim in insertion order, the replay view.
func (h *Handler) HandleByClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	events, err := h.store.ListByClaim(ctx, domain.ClaimID{Cedant: cedant, Number: number})
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit trail", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": fromEvents(events)})
}

// HandleRecent handles GET /audit/recent?limit=N, newest first.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentLimit {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation,
				"limit must be between 1 and %d", maxRecentLimit))
			return
		}
		limit = n
	}

	events, err := h.store.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list recent audit events", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list recent audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": fromEvents(events)})
}
