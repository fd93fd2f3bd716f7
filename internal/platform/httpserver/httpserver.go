package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with defaults sized for this service. The write
// timeout must stay above the location fix wait, which holds the request open
// while the device responds.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
