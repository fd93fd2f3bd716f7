package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

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

var tracer trace.Tracer = otel.Tracer("watchpost/internal/attendance")

// Dependencies wires the workflow's collaborators. All of them are required
// except FixTimeout, which falls back to the locator default when zero.
type Dependencies struct {
	Records Store
	Roster  roster.Store
	Custody custody.Store
	Ledger  *custody.Ledger
	Locator geolocation.Locator
	Auditor audit.Publisher
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// FixTimeout bounds how long RequestLocation waits for a device fix.
	FixTimeout time.Duration
}

func (d Dependencies) fixTimeout() time.Duration {
	if d.FixTimeout > 0 {
		return d.FixTimeout
	}
	return geolocation.DefaultTimeout
}

// Workflow is one guard's attendance state machine for one working day.
// Every operation acquires the workflow mutex, so a guard's operations are
// strictly sequential even when two devices act for the same guard; the
// cross-instance races that the mutex cannot see (a second process, a
// restart) are caught by the store's uniqueness and compare-and-swap
// constraints.
//
// Failed operations never advance the state: a rejected check-in leaves the
// captured fix in place so the guard retries the commit, not the whole flow.
type Workflow struct {
	deps    Dependencies
	guardID id.GuardID
	day     time.Time

	mu      sync.Mutex
	state   State
	fix     *geolocation.Fix
	post    *roster.Post
	weapon  *custody.Weapon
	record  *Record
	// handoverDone marks that the custody entry for the pending commit is
	// already in the ledger. A retried ConfirmCustody then skips straight to
	// the attendance commit instead of recording the handover twice.
	handoverDone  bool
	pendingAction custody.Action
}

// NewWorkflow builds the machine in its idle position. Callers that may be
// resuming after a restart should go through a Registry, which restores the
// checked-in position from the store.
func NewWorkflow(deps Dependencies, guardID id.GuardID, day time.Time) *Workflow {
	return &Workflow{
		deps:    deps,
		guardID: guardID,
		day:     day.UTC().Truncate(24 * time.Hour),
		state:   StateIdle,
	}
}

// State returns the current workflow position.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot describes the workflow for status queries.
type Snapshot struct {
	State           State            `json:"state"`
	Record          *Record          `json:"record,omitempty"`
	Fix             *geolocation.Fix `json:"fix,omitempty"`
	CustodyRequired bool             `json:"custody_required"`
	ExpectedAmmo    int              `json:"expected_ammo,omitempty"`
}

// Snapshot returns the workflow's current position and pending data.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{State: w.state, Record: w.record, Fix: w.fix}
	if w.state == StateAwaitingCustodyCheckIn || w.state == StateAwaitingCustodyCheckOut {
		snap.CustodyRequired = true
		if w.weapon != nil {
			snap.ExpectedAmmo = w.weapon.AmmoCount
		}
	}
	return snap
}

// restore seeds the machine from the store so a process restart does not
// strand a checked-in guard in the idle position.
func (w *Workflow) restore(ctx context.Context) {
	record, err := w.deps.Records.FindOpen(ctx, w.guardID)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateIdle {
		w.state = StateCheckedIn
		w.record = record
	}
}

// RequestLocation acquires a position fix from the guard's device. It is the
// entry point of the flow and is also called again from the checked-in
// position, because check-out must not reuse the morning's coordinates.
//
// On failure the machine moves to the location-error position (retryable),
// except when called from checked-in, where it stays checked-in.
func (w *Workflow) RequestLocation(ctx context.Context) (*geolocation.Fix, error) {
	ctx, span := tracer.Start(ctx, "attendance.RequestLocation")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()
	origin := w.state
	if !origin.permits(opRequestLocation) {
		return nil, invalidTransition(opRequestLocation, origin)
	}
	if origin != StateCheckedIn {
		w.state = StateLocating
	}

	started := time.Now()
	fix, err := w.deps.Locator.CurrentPosition(ctx, w.guardID, w.deps.fixTimeout())
	if err != nil {
		span.RecordError(err)
		kind := locationFailureKind(err)
		w.deps.Metrics.GeolocationFailures.WithLabelValues(kind).Inc()
		w.deps.Auditor.Emit(ctx, audit.Event{
			GuardID: w.guardID,
			Action:  string(audit.EventLocationFixFailed),
			Outcome: "failed",
			Reason:  kind,
		})
		w.deps.Logger.WarnContext(ctx, "location fix failed",
			slog.String("guard_id", w.guardID.String()),
			slog.String("kind", kind))
		if origin == StateCheckedIn {
			w.state = StateCheckedIn
		} else {
			w.state = StateLocationError
		}
		return nil, err
	}

	w.deps.Metrics.ObserveFixLatency(time.Since(started))
	w.fix = fix
	if origin != StateCheckedIn {
		w.state = StateLocationReady
	}
	return fix, nil
}

// CheckInResult reports the outcome of BeginCheckIn. When CustodyRequired is
// set the record is not yet committed; ConfirmCustody completes it.
type CheckInResult struct {
	Record          *Record
	CustodyRequired bool
	// ExpectedAmmo is the weapon's authoritative baseline the guard must
	// reconcile against. Only meaningful when CustodyRequired is set.
	ExpectedAmmo int
}

// BeginCheckIn opens the guard's shift at the captured position. For unarmed
// guards the record commits immediately; for armed guards the machine parks
// in the custody position and commits in ConfirmCustody.
//
// A geofence miss does not reject the check-in: the record commits with the
// flagged status and operations reviews it later.
func (w *Workflow) BeginCheckIn(ctx context.Context) (*CheckInResult, error) {
	ctx, span := tracer.Start(ctx, "attendance.BeginCheckIn")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.permits(opBeginCheckIn) {
		return nil, invalidTransition(opBeginCheckIn, w.state)
	}

	if existing, err := w.deps.Records.FindOpen(ctx, w.guardID); err == nil {
		return nil, w.rejectDuplicateCheckIn(ctx, existing)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up open attendance record", err)
	}

	guard, err := w.deps.Roster.FindGuard(ctx, w.guardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeNotFound, "guard not found", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up guard", err)
	}
	if guard.Employment != roster.EmploymentActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "guard is not active")
	}

	post, err := w.deps.Roster.FindAssignedPost(ctx, w.guardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeInvalidInput, "guard has no assigned post", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up assigned post", err)
	}
	w.post = post

	verdict := geofence.Evaluate(w.fix.Coordinates, post.Coordinates, post.EffectiveRadius())
	record := Record{
		ID:                 id.NewRecordID(),
		GuardID:            w.guardID,
		PostID:             post.ID,
		CheckInAt:          requestcontext.Now(ctx),
		CheckInCoordinates: w.fix.Coordinates,
		InsideGeofence:     verdict.Inside,
		DistanceMeters:     verdict.DistanceMeters,
		Status:             StatusFor(verdict.Inside),
	}
	w.record = &record

	if guard.Armed() {
		weapon, err := w.deps.Custody.FindAssignedWeapon(ctx, w.guardID)
		if err != nil {
			w.record = nil
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(dErrors.CodeNotFound, "assigned weapon not found", err)
			}
			return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up assigned weapon", err)
		}
		w.weapon = weapon
		w.pendingAction = custody.ActionCheckIn
		w.handoverDone = false
		w.state = StateAwaitingCustodyCheckIn
		return &CheckInResult{Record: &record, CustodyRequired: true, ExpectedAmmo: weapon.AmmoCount}, nil
	}

	if err := w.commitCheckIn(ctx); err != nil {
		w.record = nil
		return nil, err
	}
	return &CheckInResult{Record: w.record}, nil
}

// commitCheckIn persists the pending record and settles the machine in the
// checked-in position. Caller holds the mutex.
func (w *Workflow) commitCheckIn(ctx context.Context) error {
	if err := w.deps.Records.Create(ctx, *w.record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return w.rejectDuplicateCheckIn(ctx, nil)
		}
		return dErrors.Wrap(dErrors.CodePersistenceWrite, "creating attendance record", err)
	}

	w.deps.Metrics.CheckIns.WithLabelValues(string(w.record.Status)).Inc()
	w.deps.Auditor.Emit(ctx, audit.Event{
		GuardID: w.guardID,
		Action:  string(audit.EventCheckInCommitted),
		Outcome: string(w.record.Status),
		Reason:  distanceSummary(w.record.DistanceMeters),
	})
	w.deps.Logger.InfoContext(ctx, "check-in committed",
		slog.String("guard_id", w.guardID.String()),
		slog.String("record_id", w.record.ID.String()),
		slog.String("status", string(w.record.Status)))

	w.state = StateCheckedIn
	w.fix = nil
	w.weapon = nil
	w.handoverDone = false
	return nil
}

func (w *Workflow) rejectDuplicateCheckIn(ctx context.Context, existing *Record) error {
	w.deps.Metrics.DuplicateCheckIns.Inc()
	reason := "an open attendance record already exists"
	w.deps.Auditor.Emit(ctx, audit.Event{
		GuardID: w.guardID,
		Action:  string(audit.EventCheckInRejected),
		Outcome: "rejected",
		Reason:  reason,
	})
	if existing != nil {
		return dErrors.New(dErrors.CodeDuplicateCheckIn,
			fmt.Sprintf("guard already checked in at %s", existing.CheckInAt.Format(time.RFC3339)))
	}
	return dErrors.New(dErrors.CodeDuplicateCheckIn, reason)
}

// CustodyInput is what the guard reports during the mandatory reconciliation.
type CustodyInput struct {
	ObservedAmmo      int
	Notes             string
	OutgoingGuardName string
}

// ConfirmCustody records the weapon handover through the ledger and then
// commits the attendance side (create on check-in, close on check-out).
//
// The two writes are not one transaction: the ledger commit is the point of
// no return for custody, so a failed attendance commit leaves the handover
// recorded and ConfirmCustody retries only the attendance write. The guard
// never re-enters an already reconciled count.
func (w *Workflow) ConfirmCustody(ctx context.Context, in CustodyInput) (*Record, error) {
	ctx, span := tracer.Start(ctx, "attendance.ConfirmCustody")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.permits(opConfirmCustody) {
		return nil, invalidTransition(opConfirmCustody, w.state)
	}

	if !w.handoverDone {
		_, err := w.deps.Ledger.RecordHandover(ctx, custody.HandoverInput{
			Weapon:            *w.weapon,
			GuardID:           w.guardID,
			PostID:            w.record.PostID,
			Action:            w.pendingAction,
			ObservedAmmo:      in.ObservedAmmo,
			Notes:             in.Notes,
			OutgoingGuardName: in.OutgoingGuardName,
		})
		if err != nil {
			// State holds; the guard corrects the input and retries.
			span.RecordError(err)
			return nil, err
		}
		w.handoverDone = true
	}

	if w.state == StateAwaitingCustodyCheckIn {
		if err := w.commitCheckIn(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}
		return w.record, nil
	}

	if err := w.commitCheckOut(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return w.record, nil
}

// CheckOutResult reports the outcome of BeginCheckOut. When CustodyRequired
// is set the record is still open; ConfirmCustody closes it.
type CheckOutResult struct {
	Record          *Record
	CustodyRequired bool
	ExpectedAmmo    int
}

// BeginCheckOut closes the guard's shift. It requires a fix acquired after
// check-in; the check-out position is stored for audit but never changes the
// record's geofence status.
func (w *Workflow) BeginCheckOut(ctx context.Context) (*CheckOutResult, error) {
	ctx, span := tracer.Start(ctx, "attendance.BeginCheckOut")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.permits(opBeginCheckOut) {
		return nil, invalidTransition(opBeginCheckOut, w.state)
	}
	if w.fix == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			"a fresh location fix is required before check-out")
	}

	record, err := w.deps.Records.FindOpen(ctx, w.guardID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			w.deps.Auditor.Emit(ctx, audit.Event{
				GuardID: w.guardID,
				Action:  string(audit.EventCheckOutRejected),
				Outcome: "rejected",
				Reason:  "no open attendance record",
			})
			return nil, dErrors.Wrap(dErrors.CodeNoOpenRecord, "guard has no open attendance record", err)
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up open attendance record", err)
	}
	w.record = record

	guard, err := w.deps.Roster.FindGuard(ctx, w.guardID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up guard", err)
	}

	if guard.Armed() {
		weapon, err := w.deps.Custody.FindAssignedWeapon(ctx, w.guardID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(dErrors.CodeNotFound, "assigned weapon not found", err)
			}
			return nil, dErrors.Wrap(dErrors.CodeInternal, "looking up assigned weapon", err)
		}
		w.weapon = weapon
		w.pendingAction = custody.ActionCheckOut
		w.handoverDone = false
		w.state = StateAwaitingCustodyCheckOut
		return &CheckOutResult{Record: record, CustodyRequired: true, ExpectedAmmo: weapon.AmmoCount}, nil
	}

	if err := w.commitCheckOut(ctx); err != nil {
		return nil, err
	}
	return &CheckOutResult{Record: w.record}, nil
}

// commitCheckOut closes the open record at the captured position and settles
// the machine in the terminal checked-out position. Caller holds the mutex.
func (w *Workflow) commitCheckOut(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	if err := w.deps.Records.Close(ctx, w.record.ID, now, w.fix.Coordinates); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(dErrors.CodeNoOpenRecord, "attendance record disappeared", err)
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.Wrap(dErrors.CodeConflict, "attendance record already closed", err)
		default:
			return dErrors.Wrap(dErrors.CodePersistenceWrite, "closing attendance record", err)
		}
	}

	coords := w.fix.Coordinates
	w.record.CheckOutAt = &now
	w.record.CheckOutCoordinates = &coords

	w.deps.Metrics.CheckOuts.Inc()
	w.deps.Auditor.Emit(ctx, audit.Event{
		GuardID: w.guardID,
		Action:  string(audit.EventCheckOutCommitted),
		Outcome: "closed",
	})
	w.deps.Logger.InfoContext(ctx, "check-out committed",
		slog.String("guard_id", w.guardID.String()),
		slog.String("record_id", w.record.ID.String()))

	w.state = StateCheckedOut
	w.fix = nil
	w.weapon = nil
	w.handoverDone = false
	return nil
}

func locationFailureKind(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeGeolocationTimeout:
		return "timeout"
	case dErrors.CodeGeolocationDenied:
		return "denied"
	default:
		return "unavailable"
	}
}

func distanceSummary(d *float64) string {
	if d == nil {
		return "post has no mapped coordinates"
	}
	return fmt.Sprintf("%.0f m from post", *d)
}
