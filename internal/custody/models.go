// Package custody validates and records weapon handovers. Every transfer of
// a firearm between guards passes through the ledger, which reconciles the
// observed ammunition count against the last authoritative baseline and keeps
// an append-only log of the chain of custody.
package custody

import (
	"strings"
	"time"

	id "watchpost/pkg/domain"
)

// Action distinguishes the direction of a handover.
type Action string

const (
	// ActionCheckIn records a guard receiving the weapon at shift start.
	ActionCheckIn Action = "check_in"
	// ActionCheckOut records a guard delivering the weapon at shift end.
	ActionCheckOut Action = "check_out"
)

// IsValid checks the action is one of the two handover directions.
func (a Action) IsValid() bool {
	return a == ActionCheckIn || a == ActionCheckOut
}

// QuantityRole labels the observed quantity for the log: ammunition is
// "received" on check-in and "delivered" on check-out.
func (a Action) QuantityRole() string {
	if a == ActionCheckIn {
		return "received"
	}
	return "delivered"
}

// Weapon is a firearm tracked by the ledger. AmmoCount is the authoritative
// ammunition baseline and is mutated only by RecordHandover, once per
// accepted handover.
type Weapon struct {
	ID           id.WeaponID
	SerialNumber string
	Model        string
	Caliber      string
	AmmoCount    int
	// AssignedGuardID is nil while the weapon sits in the armory.
	AssignedGuardID *id.GuardID
}

// LogEntry is one immutable link in the chain of custody. Entries are never
// updated or deleted.
type LogEntry struct {
	ID           id.EntryID
	WeaponID     id.WeaponID
	GuardID      id.GuardID
	PostID       id.PostID
	Action       Action
	AmmoObserved int
	Notes        string
	CreatedAt    time.Time
}

// ComposeNotes joins the justification text with the outgoing guard's name so
// the ledger entry records who handed the weapon over.
func ComposeNotes(notes, outgoingGuardName string) string {
	parts := make([]string, 0, 2)
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if trimmed := strings.TrimSpace(outgoingGuardName); trimmed != "" {
		parts = append(parts, "outgoing guard: "+trimmed)
	}
	return strings.Join(parts, " | ")
}
