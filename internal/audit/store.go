package audit

import (
	"context"

	id "watchpost/pkg/domain"
)

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByGuard(ctx context.Context, guardID id.GuardID) ([]Event, error)
}

// Publisher is the emitting side services depend on. Implementations decide
// whether delivery is synchronous (store-backed) or buffered (channel-fed
// worker).
type Publisher interface {
	Emit(ctx context.Context, event Event)
}
