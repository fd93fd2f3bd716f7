package attendance

import (
	"context"
	"time"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
)

// Store persists attendance records.
//
// Error contract:
//   - FindOpen/FindByID return sentinel.ErrNotFound when nothing matches.
//   - Create returns sentinel.ErrConflict when the guard already has an open
//     record. The store, not the in-memory state machine, is the final
//     authority for the at-most-one-open-record invariant, because two
//     devices can race to check the same guard in.
//   - Close returns sentinel.ErrNotFound for an unknown record and
//     sentinel.ErrInvalidState for one that is already closed; a record is
//     mutated exactly once.
type Store interface {
	FindOpen(ctx context.Context, guardID id.GuardID) (*Record, error)
	FindByID(ctx context.Context, recordID id.RecordID) (*Record, error)
	Create(ctx context.Context, record Record) error
	Close(ctx context.Context, recordID id.RecordID, at time.Time, coords geofence.Coordinates) error
	// ListFlagged returns the day's records whose check-in fell outside the
	// geofence, for operations review. Read-only; status is never mutated.
	ListFlagged(ctx context.Context, day time.Time) ([]Record, error)
}
