package middleware

import (
	"net/http"
	"time"

	"watchpost/pkg/requestcontext"
)

// RequestTime pins one observation of the clock per request. Every timestamp
// a single request produces (check-in time, ledger entry, audit event) then
// agrees to the nanosecond.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
