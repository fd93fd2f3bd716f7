package custody

import (
	"context"

	id "watchpost/pkg/domain"
)

// Store persists weapons and the custody log.
//
// Error contract: FindAssignedWeapon and FindWeapon return sentinel.ErrNotFound
// when no weapon matches; UpdateAmmoCount returns sentinel.ErrStale when the
// stored baseline no longer equals expected (a concurrent handover won).
type Store interface {
	// FindAssignedWeapon returns the weapon assigned to the guard, or
	// sentinel.ErrNotFound when the guard is unarmed.
	FindAssignedWeapon(ctx context.Context, guardID id.GuardID) (*Weapon, error)
	FindWeapon(ctx context.Context, weaponID id.WeaponID) (*Weapon, error)
	// AppendLogEntry adds one immutable entry to the custody log.
	AppendLogEntry(ctx context.Context, entry LogEntry) error
	// UpdateAmmoCount swaps the authoritative baseline from expected to
	// observed. The compare against expected is what rejects a handover that
	// raced with a newer one.
	UpdateAmmoCount(ctx context.Context, weaponID id.WeaponID, expected, observed int) error
	// ListByWeapon returns the weapon's custody history, newest first.
	ListByWeapon(ctx context.Context, weaponID id.WeaponID) ([]LogEntry, error)
	// Atomically runs fn so that all store calls made with the yielded
	// context commit or roll back together.
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}
