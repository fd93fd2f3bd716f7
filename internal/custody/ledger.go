package custody

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"watchpost/internal/audit"
	"watchpost/internal/platform/metrics"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/platform/sentinel"
	"watchpost/pkg/requestcontext"
)

// Ledger validates and records weapon handovers. It is the only component
// allowed to move a weapon's authoritative ammo baseline.
type Ledger struct {
	store   Store
	auditor audit.Publisher
	metrics *metrics.Metrics
}

func NewLedger(store Store, auditor audit.Publisher, m *metrics.Metrics) *Ledger {
	return &Ledger{store: store, auditor: auditor, metrics: m}
}

// HandoverInput carries everything a handover needs. Weapon is the snapshot
// read when the workflow was entered: its AmmoCount is the expected baseline
// for this handover and is not re-read mid-operation.
type HandoverInput struct {
	Weapon            Weapon
	GuardID           id.GuardID
	PostID            id.PostID
	Action            Action
	ObservedAmmo      int
	Notes             string
	OutgoingGuardName string
}

// Deficit is observed minus expected; negative means ammunition is missing.
func (in HandoverInput) Deficit() int {
	return in.ObservedAmmo - in.Weapon.AmmoCount
}

// RecordHandover applies the reconciliation rule and, on acceptance, appends
// an immutable log entry and atomically swaps the weapon's ammo baseline
// to the observed count, so the ledger and the baseline can never disagree.
//
// Rejections persist nothing:
//   - CodeMissingJustification: an ammo deficit with blank notes.
//   - CodeStaleHandover: the baseline moved since the workflow read it
//     (a concurrent handover for the same weapon won the race).
func (l *Ledger) RecordHandover(ctx context.Context, in HandoverInput) (*LogEntry, error) {
	if !in.Action.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown handover action")
	}
	if in.ObservedAmmo < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "observed ammo cannot be negative")
	}

	deficit := in.Deficit()
	if deficit < 0 && strings.TrimSpace(in.Notes) == "" {
		l.metrics.RejectedHandovers.WithLabelValues("missing_justification").Inc()
		l.emitRejected(ctx, in, "ammo deficit without justification")
		return nil, dErrors.New(dErrors.CodeMissingJustification,
			"an ammunition deficit requires a justification note")
	}

	entry := LogEntry{
		ID:           id.NewEntryID(),
		WeaponID:     in.Weapon.ID,
		GuardID:      in.GuardID,
		PostID:       in.PostID,
		Action:       in.Action,
		AmmoObserved: in.ObservedAmmo,
		Notes:        ComposeNotes(in.Notes, in.OutgoingGuardName),
		CreatedAt:    requestcontext.Now(ctx),
	}

	err := l.store.Atomically(ctx, func(ctx context.Context) error {
		if err := l.store.AppendLogEntry(ctx, entry); err != nil {
			return err
		}
		return l.store.UpdateAmmoCount(ctx, in.Weapon.ID, in.Weapon.AmmoCount, in.ObservedAmmo)
	})
	switch {
	case errors.Is(err, sentinel.ErrStale):
		l.metrics.RejectedHandovers.WithLabelValues("stale_baseline").Inc()
		l.emitRejected(ctx, in, "ammo baseline changed since workflow start")
		return nil, dErrors.Wrap(dErrors.CodeStaleHandover,
			"weapon ammo count changed since the handover began", err)
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(dErrors.CodeNotFound, "weapon no longer exists", err)
	case err != nil:
		return nil, dErrors.Wrap(dErrors.CodePersistenceWrite, "recording handover", err)
	}

	l.metrics.Handovers.WithLabelValues(string(in.Action)).Inc()
	if deficit < 0 {
		l.metrics.DeficitHandovers.Inc()
	}
	l.auditor.Emit(ctx, audit.Event{
		GuardID:  in.GuardID,
		Action:   string(audit.EventHandoverRecorded),
		Outcome:  "accepted",
		Reason:   fmt.Sprintf("%s %d rounds (deficit %d)", in.Action.QuantityRole(), in.ObservedAmmo, deficit),
		WeaponID: in.Weapon.ID.String(),
	})
	return &entry, nil
}

func (l *Ledger) emitRejected(ctx context.Context, in HandoverInput, reason string) {
	l.auditor.Emit(ctx, audit.Event{
		GuardID:  in.GuardID,
		Action:   string(audit.EventHandoverRejected),
		Outcome:  "rejected",
		Reason:   reason,
		WeaponID: in.Weapon.ID.String(),
	})
}

// History returns the weapon's custody trail, newest first.
func (l *Ledger) History(ctx context.Context, weaponID id.WeaponID) ([]LogEntry, error) {
	if weaponID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "weapon id is required")
	}
	entries, err := l.store.ListByWeapon(ctx, weaponID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "listing weapon history", err)
	}
	return entries, nil
}
