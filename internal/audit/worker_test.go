package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "watchpost/pkg/domain"
	"watchpost/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_DrainsInboxIntoStore(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewChannelPublisher(16, discardLogger())
	worker := NewWorker(store, nil, publisher.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	guardID := id.NewGuardID()
	publisher.Emit(ctx, Event{GuardID: guardID, Action: string(EventCheckInCommitted), Outcome: "confirmed"})
	publisher.Emit(ctx, Event{GuardID: guardID, Action: string(EventHandoverRecorded), Outcome: "accepted"})

	require.Eventually(t, func() bool {
		return len(store.All()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}

	events, err := store.ListByGuard(context.Background(), guardID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(EventCheckInCommitted), events[0].Action)
	assert.Equal(t, string(EventHandoverRecorded), events[1].Action)
}

func TestChannelPublisher_DropsWhenBufferFull(t *testing.T) {
	publisher := NewChannelPublisher(1, discardLogger())
	ctx := context.Background()

	publisher.Emit(ctx, Event{Action: "first"})
	publisher.Emit(ctx, Event{Action: "dropped"})

	select {
	case event := <-publisher.Inbox():
		assert.Equal(t, "first", event.Action)
	default:
		t.Fatal("expected a buffered event")
	}
	select {
	case event := <-publisher.Inbox():
		t.Fatalf("unexpected second event %q", event.Action)
	default:
	}
}

func TestEmit_EnrichesFromRequestContext(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewStorePublisher(store, discardLogger())

	pinned := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), pinned)
	ctx = requestcontext.WithRequestID(ctx, "req-123")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "Firefox 140 on Linux")

	publisher.Emit(ctx, Event{
		GuardID: id.NewGuardID(),
		Action:  string(EventHandoverRejected),
		Outcome: "rejected",
	})

	events := store.All()
	require.Len(t, events, 1)
	assert.Equal(t, pinned, events[0].Timestamp)
	assert.Equal(t, "req-123", events[0].RequestID)
	assert.Equal(t, "203.0.113.9", events[0].ClientIP)
	assert.Equal(t, "Firefox 140 on Linux", events[0].Device)
	assert.Equal(t, CategorySecurity, events[0].Category)
}

func TestAuditEvent_Category(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventHandoverRecorded.Category())
	assert.Equal(t, CategorySecurity, EventCheckInRejected.Category())
	assert.Equal(t, CategoryOperations, EventCheckOutCommitted.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unmapped").Category())
}
