package attendance

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
	"watchpost/internal/custody"
	"watchpost/internal/geofence"
	"watchpost/internal/geolocation"
	"watchpost/internal/platform/metrics"
	"watchpost/internal/roster"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/platform/sentinel"
	"watchpost/pkg/requestcontext"
)

// postCoords is a downtown Asunción post used across the workflow tests.
var postCoords = geofence.Coordinates{Latitude: -25.2637, Longitude: -57.5759}

// farCoords sits roughly a kilometre north of the post.
var farCoords = geofence.Coordinates{Latitude: -25.2537, Longitude: -57.5759}

type workflowFixture struct {
	records *InMemoryStore
	roster  *roster.InMemoryStore
	weapons *custody.InMemoryStore
	locator *geolocation.MemoryLocator
	trail   *audit.InMemoryStore
	deps    Dependencies
	guardID id.GuardID
	postID  id.PostID
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	f := &workflowFixture{
		records: NewInMemoryStore(),
		roster:  roster.NewInMemoryStore(),
		weapons: custody.NewInMemoryStore(),
		locator: geolocation.NewMemoryLocator(),
		trail:   audit.NewInMemoryStore(),
		guardID: id.NewGuardID(),
		postID:  id.NewPostID(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	auditor := audit.NewStorePublisher(f.trail, logger)
	f.deps = Dependencies{
		Records: f.records,
		Roster:  f.roster,
		Custody: f.weapons,
		Ledger:  custody.NewLedger(f.weapons, auditor, m),
		Locator: f.locator,
		Auditor: auditor,
		Metrics: m,
		Logger:  logger,
	}
	f.roster.PutPost(roster.Post{ID: f.postID, Name: "Palma 850", Coordinates: &postCoords, RadiusMeters: 500})
	f.roster.PutGuard(roster.Guard{
		ID:         f.guardID,
		FullName:   "C. Benítez",
		Employment: roster.EmploymentActive,
		PostID:     &f.postID,
	}, id.UserID{})
	return f
}

// arm assigns a weapon to the fixture's guard with the given ammo baseline.
func (f *workflowFixture) arm(ammo int) custody.Weapon {
	weaponID := id.NewWeaponID()
	weapon := custody.Weapon{
		ID:              weaponID,
		SerialNumber:    "PT-92-114",
		Model:           "PT92",
		Caliber:         "9mm",
		AmmoCount:       ammo,
		AssignedGuardID: &f.guardID,
	}
	f.weapons.PutWeapon(weapon)
	guard, _ := f.roster.FindGuard(context.Background(), f.guardID)
	armed := *guard
	armed.WeaponID = &weaponID
	f.roster.PutGuard(armed, id.UserID{})
	return weapon
}

func (f *workflowFixture) workflow(ctx context.Context) *Workflow {
	return NewWorkflow(f.deps, f.guardID, requestcontext.Now(ctx))
}

func (f *workflowFixture) reportFix(coords geofence.Coordinates, at time.Time) {
	f.locator.SetFix(f.guardID, geolocation.Fix{Coordinates: coords, AccuracyMeters: 8, ReportedAt: at})
}

func pinnedContext(t *testing.T) (context.Context, time.Time) {
	t.Helper()
	now := time.Date(2026, time.March, 9, 6, 0, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), now), now
}

func TestWorkflow_UnarmedFullDay(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	fix, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, StateLocationReady, w.State())
	assert.Equal(t, postCoords, fix.Coordinates)

	res, err := w.BeginCheckIn(ctx)
	require.NoError(t, err)
	require.False(t, res.CustodyRequired)
	require.Equal(t, StateCheckedIn, w.State())
	assert.Equal(t, StatusConfirmed, res.Record.Status)
	assert.True(t, res.Record.InsideGeofence)
	require.NotNil(t, res.Record.DistanceMeters)
	assert.InDelta(t, 0, *res.Record.DistanceMeters, 1)
	assert.Equal(t, now, res.Record.CheckInAt)

	open, err := f.records.FindOpen(ctx, f.guardID)
	require.NoError(t, err)
	assert.Equal(t, res.Record.ID, open.ID)

	// Check-out needs its own fix; the morning's is consumed by check-in.
	later := requestcontext.WithTime(ctx, now.Add(8*time.Hour))
	f.reportFix(postCoords, now.Add(8*time.Hour))
	_, err = w.RequestLocation(later)
	require.NoError(t, err)
	require.Equal(t, StateCheckedIn, w.State())

	out, err := w.BeginCheckOut(later)
	require.NoError(t, err)
	require.False(t, out.CustodyRequired)
	require.Equal(t, StateCheckedOut, w.State())
	require.NotNil(t, out.Record.CheckOutAt)
	assert.Equal(t, now.Add(8*time.Hour), *out.Record.CheckOutAt)

	closed, err := f.records.FindByID(ctx, out.Record.ID)
	require.NoError(t, err)
	assert.False(t, closed.Open())
	require.NotNil(t, closed.CheckOutCoordinates)
	assert.Equal(t, postCoords, *closed.CheckOutCoordinates)
}

func TestWorkflow_OutsideGeofenceFlagsButCommits(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(farCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)

	res, err := w.BeginCheckIn(ctx)
	require.NoError(t, err)
	require.Equal(t, StateCheckedIn, w.State())
	assert.Equal(t, StatusFlagged, res.Record.Status)
	assert.False(t, res.Record.InsideGeofence)
	require.NotNil(t, res.Record.DistanceMeters)
	assert.Greater(t, *res.Record.DistanceMeters, 500.0)

	flagged, err := f.records.ListFlagged(ctx, now)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, res.Record.ID, flagged[0].ID)
}

func TestWorkflow_CheckOutKeepsCheckInVerdict(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	res, err := w.BeginCheckIn(ctx)
	require.NoError(t, err)

	// Leaving the site before checking out must not rewrite the verdict.
	f.reportFix(farCoords, now.Add(9*time.Hour))
	_, err = w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckOut(ctx)
	require.NoError(t, err)

	closed, err := f.records.FindByID(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, closed.Status)
	assert.True(t, closed.InsideGeofence)
	assert.Equal(t, farCoords, *closed.CheckOutCoordinates)
}

func TestWorkflow_ArmedCheckInCommitsAfterReconciliation(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	weapon := f.arm(15)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)

	res, err := w.BeginCheckIn(ctx)
	require.NoError(t, err)
	require.True(t, res.CustodyRequired)
	assert.Equal(t, 15, res.ExpectedAmmo)
	require.Equal(t, StateAwaitingCustodyCheckIn, w.State())

	// Nothing commits until the reconciliation clears.
	_, err = f.records.FindOpen(ctx, f.guardID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	record, err := w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 15, OutgoingGuardName: "R. Ayala"})
	require.NoError(t, err)
	require.Equal(t, StateCheckedIn, w.State())

	open, err := f.records.FindOpen(ctx, f.guardID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, open.ID)

	entries, err := f.weapons.ListByWeapon(ctx, weapon.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, custody.ActionCheckIn, entries[0].Action)
	assert.Equal(t, 15, entries[0].AmmoObserved)
	assert.Contains(t, entries[0].Notes, "R. Ayala")
}

func TestWorkflow_CheckInTimeIsArrivalNotCommitTime(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	f.arm(15)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)

	res, err := w.BeginCheckIn(ctx)
	require.NoError(t, err)
	require.True(t, res.CustodyRequired)

	// The reconciliation drags on; the record still attests to the arrival.
	later := requestcontext.WithTime(context.Background(), now.Add(25*time.Minute))
	record, err := w.ConfirmCustody(later, CustodyInput{ObservedAmmo: 15})
	require.NoError(t, err)
	assert.Equal(t, now, record.CheckInAt)

	open, err := f.records.FindOpen(ctx, f.guardID)
	require.NoError(t, err)
	assert.Equal(t, now, open.CheckInAt)
}

func TestWorkflow_DeficitWithoutNotesKeepsCustodyPosition(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	f.arm(15)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.NoError(t, err)

	_, err = w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 13})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingJustification))
	require.Equal(t, StateAwaitingCustodyCheckIn, w.State())

	// The guard adds the justification and retries the same step.
	record, err := w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 13, Notes: "two rounds expended at range drill"})
	require.NoError(t, err)
	require.Equal(t, StateCheckedIn, w.State())
	assert.Equal(t, StatusConfirmed, record.Status)
}

func TestWorkflow_ArmedCheckOutReconciles(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	weapon := f.arm(15)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.NoError(t, err)
	_, err = w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 15})
	require.NoError(t, err)

	f.reportFix(postCoords, now.Add(8*time.Hour))
	_, err = w.RequestLocation(ctx)
	require.NoError(t, err)
	out, err := w.BeginCheckOut(ctx)
	require.NoError(t, err)
	require.True(t, out.CustodyRequired)
	assert.Equal(t, 15, out.ExpectedAmmo)
	require.Equal(t, StateAwaitingCustodyCheckOut, w.State())

	record, err := w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 15})
	require.NoError(t, err)
	require.Equal(t, StateCheckedOut, w.State())
	assert.False(t, record.Open())

	entries, err := f.weapons.ListByWeapon(ctx, weapon.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, custody.ActionCheckOut, entries[0].Action)
}

func TestWorkflow_DuplicateCheckInRejected(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)

	first := f.workflow(ctx)
	f.reportFix(postCoords, now)
	_, err := first.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = first.BeginCheckIn(ctx)
	require.NoError(t, err)

	// A second device for the same guard races through the same flow.
	second := f.workflow(ctx)
	_, err = second.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = second.BeginCheckIn(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateCheckIn))
	assert.Equal(t, StateLocationReady, second.State())
}

func TestWorkflow_LocationFailureIsRetryable(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.locator.SetError(f.guardID, dErrors.New(dErrors.CodeGeolocationTimeout, "no fix within deadline"))
	_, err := w.RequestLocation(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeGeolocationTimeout))
	require.Equal(t, StateLocationError, w.State())

	// Check-in stays unreachable until a fix lands.
	_, err = w.BeginCheckIn(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	f.reportFix(postCoords, now)
	_, err = w.RequestLocation(ctx)
	require.NoError(t, err)
	require.Equal(t, StateLocationReady, w.State())
}

func TestWorkflow_CheckOutRequiresFreshFix(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.NoError(t, err)

	_, err = w.BeginCheckOut(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	require.Equal(t, StateCheckedIn, w.State())
}

func TestWorkflow_CheckOutWithoutOpenRecord(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.NoError(t, err)

	// Another actor closes the shift out of band.
	open, err := f.records.FindOpen(ctx, f.guardID)
	require.NoError(t, err)
	require.NoError(t, f.records.Close(ctx, open.ID, now.Add(time.Hour), postCoords))

	f.reportFix(postCoords, now.Add(2*time.Hour))
	_, err = w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckOut(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoOpenRecord))
}

func TestWorkflow_GuardWithoutPost(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	unassigned := id.NewGuardID()
	f.roster.PutGuard(roster.Guard{ID: unassigned, FullName: "L. Rojas", Employment: roster.EmploymentActive}, id.UserID{})
	w := NewWorkflow(f.deps, unassigned, now)

	f.locator.SetFix(unassigned, geolocation.Fix{Coordinates: postCoords, ReportedAt: now})
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Equal(t, StateLocationReady, w.State())
}

func TestWorkflow_SuspendedGuardCannotCheckIn(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	guard, err := f.roster.FindGuard(ctx, f.guardID)
	require.NoError(t, err)
	suspended := *guard
	suspended.Employment = roster.EmploymentSuspended
	f.roster.PutGuard(suspended, id.UserID{})

	w := f.workflow(ctx)
	f.reportFix(postCoords, now)
	_, err = w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestWorkflow_InvalidTransitions(t *testing.T) {
	ctx, _ := pinnedContext(t)
	f := newWorkflowFixture(t)

	cases := []struct {
		name string
		call func(w *Workflow) error
	}{
		{"check-in before location", func(w *Workflow) error {
			_, err := w.BeginCheckIn(ctx)
			return err
		}},
		{"custody before check-in", func(w *Workflow) error {
			_, err := w.ConfirmCustody(ctx, CustodyInput{ObservedAmmo: 15})
			return err
		}},
		{"check-out before check-in", func(w *Workflow) error {
			_, err := w.BeginCheckOut(ctx)
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.workflow(ctx)
			err := tc.call(w)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
			assert.Equal(t, StateIdle, w.State())
		})
	}
}

func TestWorkflow_AuditTrail(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	w := f.workflow(ctx)

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	_, err = w.BeginCheckIn(ctx)
	require.NoError(t, err)

	events, err := f.trail.ListByGuard(ctx, f.guardID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCheckInCommitted), events[0].Action)
	assert.Equal(t, string(StatusConfirmed), events[0].Outcome)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestRegistry_OneWorkflowPerGuardDay(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	registry := NewRegistry(f.deps)

	first := registry.Acquire(ctx, f.guardID)
	second := registry.Acquire(ctx, f.guardID)
	assert.Same(t, first, second)

	other := registry.Acquire(ctx, id.NewGuardID())
	assert.NotSame(t, first, other)

	tomorrow := requestcontext.WithTime(context.Background(), now.Add(24*time.Hour))
	next := registry.Acquire(tomorrow, f.guardID)
	assert.NotSame(t, first, next)
}

func TestRegistry_RestoresOpenShift(t *testing.T) {
	ctx, now := pinnedContext(t)
	f := newWorkflowFixture(t)
	require.NoError(t, f.records.Create(ctx, Record{
		ID:                 id.NewRecordID(),
		GuardID:            f.guardID,
		PostID:             f.postID,
		CheckInAt:          now.Add(-2 * time.Hour),
		CheckInCoordinates: postCoords,
		InsideGeofence:     true,
		Status:             StatusConfirmed,
	}))

	registry := NewRegistry(f.deps)
	w := registry.Acquire(ctx, f.guardID)
	require.Equal(t, StateCheckedIn, w.State())

	f.reportFix(postCoords, now)
	_, err := w.RequestLocation(ctx)
	require.NoError(t, err)
	out, err := w.BeginCheckOut(ctx)
	require.NoError(t, err)
	assert.False(t, out.Record.Open())
	require.Equal(t, StateCheckedOut, w.State())
}
