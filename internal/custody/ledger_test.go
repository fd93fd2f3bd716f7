package custody

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchpost/internal/audit"
	"watchpost/internal/platform/metrics"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

type ledgerFixture struct {
	ledger *Ledger
	store  *InMemoryStore
	trail  *audit.InMemoryStore
	guard  id.GuardID
	post   id.PostID
	weapon Weapon
}

func newLedgerFixture(t *testing.T, ammo int) *ledgerFixture {
	t.Helper()
	store := NewInMemoryStore()
	trail := audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guardID := id.NewGuardID()
	weapon := Weapon{
		ID:              id.NewWeaponID(),
		SerialNumber:    "PT-92-001",
		Model:           "PT92",
		Caliber:         "9mm",
		AmmoCount:       ammo,
		AssignedGuardID: &guardID,
	}
	store.PutWeapon(weapon)
	return &ledgerFixture{
		ledger: NewLedger(store, audit.NewStorePublisher(trail, logger), metrics.NewWith(prometheus.NewRegistry())),
		store:  store,
		trail:  trail,
		guard:  guardID,
		post:   id.NewPostID(),
		weapon: weapon,
	}
}

func (f *ledgerFixture) input(action Action, observed int, notes string) HandoverInput {
	return HandoverInput{
		Weapon:       f.weapon,
		GuardID:      f.guard,
		PostID:       f.post,
		Action:       action,
		ObservedAmmo: observed,
		Notes:        notes,
	}
}

func TestRecordHandover_DeficitRequiresJustification(t *testing.T) {
	ctx := context.Background()

	t.Run("blank notes rejected, nothing persisted", func(t *testing.T) {
		f := newLedgerFixture(t, 10)

		_, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 8, "   "))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingJustification))

		stored, err := f.store.FindWeapon(ctx, f.weapon.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, stored.AmmoCount, "baseline must be untouched")
		entries, err := f.store.ListByWeapon(ctx, f.weapon.ID)
		require.NoError(t, err)
		assert.Empty(t, entries, "no log entry on rejection")
	})

	t.Run("justified deficit accepted and baseline moves", func(t *testing.T) {
		f := newLedgerFixture(t, 10)

		entry, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 8, "fired during drill"))
		require.NoError(t, err)
		assert.Equal(t, 8, entry.AmmoObserved)
		assert.Contains(t, entry.Notes, "fired during drill")

		stored, err := f.store.FindWeapon(ctx, f.weapon.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, stored.AmmoCount)
	})

	t.Run("no deficit needs no notes", func(t *testing.T) {
		f := newLedgerFixture(t, 10)

		_, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckOut, 10, ""))
		require.NoError(t, err)
	})

	t.Run("surplus needs no notes", func(t *testing.T) {
		f := newLedgerFixture(t, 10)

		entry, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 12, ""))
		require.NoError(t, err)
		assert.Equal(t, 12, entry.AmmoObserved)
	})
}

func TestRecordHandover_StaleBaseline(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 10)

	// A concurrent handover moved the baseline after this workflow read it.
	require.NoError(t, f.store.UpdateAmmoCount(ctx, f.weapon.ID, 10, 7))

	_, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckOut, 10, ""))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStaleHandover))

	stored, err := f.store.FindWeapon(ctx, f.weapon.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.AmmoCount, "the newer handover's baseline survives")

	entries, err := f.store.ListByWeapon(ctx, f.weapon.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "a rejected handover must not leave a log entry")
}

func TestRecordHandover_StaleRejectionKeepsEarlierEntries(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 10)

	accepted, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 7, "fired during drill"))
	require.NoError(t, err)

	// This handover still carries the original baseline of 10 and loses.
	_, err = f.ledger.RecordHandover(ctx, f.input(ActionCheckOut, 10, ""))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeStaleHandover))

	entries, err := f.store.ListByWeapon(ctx, f.weapon.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the rollback must only discard the failed handover")
	assert.Equal(t, accepted.ID, entries[0].ID)

	stored, err := f.store.FindWeapon(ctx, f.weapon.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.AmmoCount)
}

func TestRecordHandover_NotesComposition(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 10)

	in := f.input(ActionCheckIn, 9, "one round unaccounted")
	in.OutgoingGuardName = "R. Ayala"

	entry, err := f.ledger.RecordHandover(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "one round unaccounted | outgoing guard: R. Ayala", entry.Notes)
}

func TestRecordHandover_Validation(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 10)

	t.Run("unknown action", func(t *testing.T) {
		in := f.input(Action("borrow"), 10, "")
		_, err := f.ledger.RecordHandover(ctx, in)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("negative ammo", func(t *testing.T) {
		_, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, -1, ""))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestRecordHandover_UsesRequestScopedClock(t *testing.T) {
	f := newLedgerFixture(t, 10)
	fixed := time.Date(2025, 6, 1, 7, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)

	entry, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 10, ""))
	require.NoError(t, err)
	assert.Equal(t, fixed, entry.CreatedAt)
}

func TestRecordHandover_AuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, 10)

	_, err := f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 8, ""))
	require.Error(t, err)
	_, err = f.ledger.RecordHandover(ctx, f.input(ActionCheckIn, 8, "fired during drill"))
	require.NoError(t, err)

	events, err := f.trail.ListByGuard(ctx, f.guard)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(audit.EventHandoverRejected), events[0].Action)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, string(audit.EventHandoverRecorded), events[1].Action)
	assert.Equal(t, audit.CategoryCompliance, events[1].Category)
	assert.Contains(t, events[1].Reason, "received 8 rounds (deficit -2)")
}
