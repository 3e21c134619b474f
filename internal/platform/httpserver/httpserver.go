// Package httpserver builds the API server with timeouts suited to the
// claim-submission workload: batch bodies can be large, so the body read
// timeout is generous while the header timeout stays tight.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the project defaults.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
