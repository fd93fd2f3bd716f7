// Package attendance drives the guard check-in/check-out workflow: acquire a
// device position, evaluate it against the post's geofence, run the mandatory
// custody step for armed guards, and commit the attendance record.
package attendance

import (
	"time"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
)

// Status captures the geofence verdict at check-in. It is never recomputed
// at check-out: the check-in position is what the record attests to, and the
// check-out position is stored for audit only.
type Status string

const (
	// StatusConfirmed: the check-in position was inside the post's geofence.
	StatusConfirmed Status = "confirmed"
	// StatusFlagged: the check-in position was outside. The check-in still
	// commits; operations review flagged records after the fact.
	StatusFlagged Status = "flagged"
)

// Record is one shift's attendance. Created at check-in, mutated exactly
// once at check-out, never deleted.
type Record struct {
	ID      id.RecordID
	GuardID id.GuardID
	PostID  id.PostID
	// CheckInAt is the arrival time, stamped when check-in begins. An armed
	// guard's record commits later, after the custody reconciliation, but
	// the record attests to when the guard was at the post, not to when the
	// paperwork finished.
	CheckInAt          time.Time
	CheckInCoordinates geofence.Coordinates
	// InsideGeofence is the verdict captured at check-in.
	InsideGeofence bool
	// DistanceMeters from the post at check-in; nil for unmapped posts.
	DistanceMeters *float64
	Status         Status
	// CheckOutAt is nil while the shift is open. At most one open record
	// exists per guard; the store's uniqueness constraint is the final
	// authority on that invariant.
	CheckOutAt          *time.Time
	CheckOutCoordinates *geofence.Coordinates
}

// Open reports whether the shift is still in progress.
func (r Record) Open() bool { return r.CheckOutAt == nil }

// WorkDay returns the calendar day (UTC) the record belongs to.
func (r Record) WorkDay() time.Time {
	return r.CheckInAt.UTC().Truncate(24 * time.Hour)
}

// StatusFor derives the record status from a geofence verdict.
func StatusFor(inside bool) Status {
	if inside {
		return StatusConfirmed
	}
	return StatusFlagged
}
