// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and stores read them. Keeping the
// package free of net/http lets services consume request metadata without
// pulling in transport code.
//
// Usage in services (read values):
//
//	guardID := requestcontext.GuardID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "iPhone")
package requestcontext

import (
	"context"
	"time"

	id "watchpost/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	guardIDKey   struct{}
	sessionIDKey struct{}
	clientIPKey  struct{}
	deviceKey    struct{}
	requestIDKey struct{}
	timeKey      struct{}
)

// GuardID retrieves the acting guard resolved by the access gate.
// Returns the zero value (nil UUID) if not set.
func GuardID(ctx context.Context) id.GuardID {
	if g, ok := ctx.Value(guardIDKey{}).(id.GuardID); ok {
		return g
	}
	return id.GuardID{}
}

// WithGuardID injects the acting guard into the context.
func WithGuardID(ctx context.Context, guardID id.GuardID) context.Context {
	return context.WithValue(ctx, guardIDKey{}, guardID)
}

// SessionID retrieves the authenticated session ID from the context.
func SessionID(ctx context.Context) id.SessionID {
	if s, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return s
	}
	return id.SessionID{}
}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// Device retrieves the parsed device description (browser/OS or app) from
// the context. Recorded on audit events so handovers are traceable to the
// device that reported them.
func Device(ctx context.Context) string {
	if d, ok := ctx.Value(deviceKey{}).(string); ok {
		return d
	}
	return ""
}

// WithClientMetadata injects client IP and device description into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, device string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, deviceKey{}, device)
	return ctx
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context so a whole operation shares
// one timestamp and tests can pin the clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}
