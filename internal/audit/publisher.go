package audit

import (
	"context"
	"log/slog"

	"watchpost/pkg/requestcontext"
)

// enrich fills event fields derivable from the request context so emit sites
// stay one-liners.
func enrich(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	return event
}

// StorePublisher appends events synchronously. Used in tests and anywhere a
// lost event is worse than added latency.
type StorePublisher struct {
	store  Store
	logger *slog.Logger
}

func NewStorePublisher(store Store, logger *slog.Logger) *StorePublisher {
	return &StorePublisher{store: store, logger: logger}
}

// Emit records the event. The audit trail supplements the domain records and
// must never block a committed workflow transition, so failures are logged
// rather than propagated.
func (p *StorePublisher) Emit(ctx context.Context, event Event) {
	event = enrich(ctx, event)
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", event.Action,
			"guard_id", event.GuardID.String(),
			"error", err,
		)
	}
}

// ChannelPublisher hands events to a background worker through a bounded
// buffer. When the buffer is full the event is dropped and counted; audit
// must not apply backpressure to the interactive workflow.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewChannelPublisher(buffer int, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{inbox: make(chan Event, buffer), logger: logger}
}

// Inbox exposes the receiving side for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event { return p.inbox }

func (p *ChannelPublisher) Emit(ctx context.Context, event Event) {
	event = enrich(ctx, event)
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", event.Action,
			"guard_id", event.GuardID.String(),
		)
	}
}
