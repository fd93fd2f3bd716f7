package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them, optionally
// fanning out to a Kafka sink. It keeps background processing testable
// without wiring broker implementations.
type Worker struct {
	store  Store
	sink   *KafkaSink // nil when Kafka is not configured
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, sink *KafkaSink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. A failed append is logged and
// the worker keeps going: one bad event must not stall the trail behind it.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed", "action", event.Action, "error", err)
			}
			if w.sink != nil {
				if err := w.sink.Publish(ctx, event); err != nil {
					w.logger.Error("audit kafka publish failed", "action", event.Action, "error", err)
				}
			}
		}
	}
}
