// Package httpapi assembles the public HTTP surface: claim submission,
// supervisor review, the audit trail, and operational endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditHandler "bordero/internal/audit/handler"
	"bordero/internal/auth"
	claimsHandler "bordero/internal/claims/handler"
	reviewHandler "bordero/internal/review/handler"
	"bordero/pkg/platform/httputil"
	authmw "bordero/pkg/platform/middleware/auth"
	request "bordero/pkg/platform/middleware/request"
	"bordero/pkg/platform/middleware/requesttime"
)

// Deps carries the handlers and cross-cutting pieces the router mounts.
type Deps struct {
	Claims *claimsHandler.Handler
	Review *reviewHandler.Handler
	Audit  *auditHandler.Handler

	JWTValidator authmw.JWTValidator
	Logger       *slog.Logger
}

// NewRouter wires all endpoints. Claim submission is open to the extraction
// collaborator; review and audit routes require a supervisor token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	deps.Claims.Register(r)

	r.Group(func(protected chi.Router) {
		protected.Use(authmw.RequireAuth(deps.JWTValidator, deps.Logger))
		protected.Use(authmw.RequireRole(auth.RoleSupervisor, deps.Logger))
		deps.Review.Register(protected)
		deps.Audit.Register(protected)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
