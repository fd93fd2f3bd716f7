package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	jwttoken "watchpost/internal/jwt_token"
	"watchpost/internal/session"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// TokenValidator validates a bearer token into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireGuard authenticates the request and resolves the acting guard. The
// guard and session IDs land in the context; handlers never parse tokens.
func RequireGuard(validator TokenValidator, gate *session.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
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
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					slog.String("request_id", requestcontext.RequestID(ctx)))
				writeAuthError(w, err)
				return
			}

			sess, err := sessionFromClaims(claims)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			guardID, err := gate.GuardIDOf(ctx, sess)
			if err != nil {
				logger.WarnContext(ctx, "guard resolution rejected",
					slog.String("request_id", requestcontext.RequestID(ctx)),
					slog.String("user_id", sess.UserID.String()))
				writeAuthError(w, err)
				return
			}

			ctx = requestcontext.WithSessionID(ctx, sess.ID)
			ctx = requestcontext.WithGuardID(ctx, guardID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromClaims(claims *jwttoken.Claims) (session.Session, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return session.Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid user id in token")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return session.Session{}, dErrors.New(dErrors.CodeUnauthorized, "invalid session id in token")
	}
	role := session.Role(claims.Role)
	if !role.Valid() {
		return session.Session{}, dErrors.New(dErrors.CodeUnauthorized, "unknown role in token")
	}
	return session.Session{
		ID:                     sessionID,
		UserID:                 userID,
		Role:                   role,
		RequiresPasswordChange: claims.RequiresPasswordChange,
	}, nil
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(dErrors.CodeOf(err)))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": string(dErrors.CodeOf(err))})
}
