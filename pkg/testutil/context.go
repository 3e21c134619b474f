package testutil

import (
	"context"
	"net/http"

	authmw "bordero/pkg/platform/middleware/auth"
)

// WithIdentity adds a caller identity to the request context, simulating what
// the auth middleware does for authenticated requests.
func WithIdentity(req *http.Request, supervisor, role string) *http.Request {
	ctx := req.Context()
	if supervisor != "" {
		ctx = context.WithValue(ctx, authmw.ContextKeySupervisor, supervisor)
	}
	if role != "" {
		ctx = context.WithValue(ctx, authmw.ContextKeyRole, role)
	}
	return req.WithContext(ctx)
}

// WithSupervisor is WithIdentity with the supervisor role.
func WithSupervisor(req *http.Request, supervisor string) *http.Request {
	return WithIdentity(req, supervisor, "supervisor")
}
