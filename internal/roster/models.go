// Package roster exposes read-only views of guards and posts. Both entities
// are owned by the HR side of the surrounding system; the attendance core
// never mutates them.
package roster

import (
	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
)

// EmploymentStatus mirrors the HR system's guard lifecycle.
type EmploymentStatus string

const (
	EmploymentActive    EmploymentStatus = "active"
	EmploymentSuspended EmploymentStatus = "suspended"
	EmploymentInactive  EmploymentStatus = "inactive"
)

// Guard is the acting identity of the workflow.
type Guard struct {
	ID         id.GuardID
	FullName   string
	Employment EmploymentStatus
	// PostID is the guard's assigned post, nil when unassigned.
	PostID *id.PostID
	// WeaponID is the guard's assigned firearm, nil when the guard is
	// unarmed. Presence of a weapon makes the custody step mandatory.
	WeaponID *id.WeaponID
}

// Armed reports whether check-in/out must pass through the custody ledger.
func (g Guard) Armed() bool { return g.WeaponID != nil }

// Post is a guarded location. Coordinates are optional: posts without mapped
// coordinates fall under the permissive geofence policy.
type Post struct {
	ID           id.PostID
	Name         string
	Coordinates  *geofence.Coordinates
	RadiusMeters float64
}

// EffectiveRadius returns the post's geofence radius, falling back to the
// domain default when unset.
func (p Post) EffectiveRadius() float64 {
	if p.RadiusMeters > 0 {
		return p.RadiusMeters
	}
	return geofence.DefaultRadiusMeters
}
