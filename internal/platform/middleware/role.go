package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"watchpost/internal/session"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// RequireRole authenticates the request and admits only the listed roles.
// Used for the back-office read endpoints (flagged records, custody history)
// that are not guard operations.
func RequireRole(validator TokenValidator, logger *slog.Logger, roles ...session.Role) func(http.Handler) http.Handler {
	allowed := make(map[session.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			sess, err := sessionFromClaims(claims)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if sess.RequiresPasswordChange {
				writeAuthError(w, dErrors.New(dErrors.CodeForbidden, "password change required before operating"))
				return
			}
			if _, ok := allowed[sess.Role]; !ok {
				logger.WarnContext(ctx, "role not admitted",
					slog.String("request_id", requestcontext.RequestID(ctx)),
					slog.String("role", string(sess.Role)))
				writeAuthError(w, dErrors.New(dErrors.CodeForbidden, "role not admitted to this endpoint"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithSessionID(ctx, sess.ID)))
		})
	}
}
