// Package httputil centralizes JSON encoding and domain-error translation for
// HTTP handlers so transport concerns stay out of services.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "bordero/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and parse their
// own fields. DecodeAndPrepare calls Validate after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the wire shape for all error responses.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError maps a domain error code to an HTTP status and writes a JSON
// error body. Internal errors omit the description so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	status := http.StatusInternalServerError
	wire := "internal_error"
	includeDescription := true

	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation:
		status = http.StatusUnprocessableEntity
		wire = string(code)
	case dErrors.CodeBadRequest:
		status = http.StatusBadRequest
		wire = string(code)
	case dErrors.CodeUnauthorized:
		status = http.StatusUnauthorized
		wire = string(code)
	case dErrors.CodeForbidden:
		status = http.StatusForbidden
		wire = string(code)
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
		wire = string(code)
	case dErrors.CodeConflict:
		status = http.StatusConflict
		wire = string(code)
	case dErrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
		wire = string(code)
	default:
		includeDescription = false
	}

	resp := errorResponse{Error: wire}
	if includeDescription {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false; handlers
// should return immediately.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "request decode failed",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
