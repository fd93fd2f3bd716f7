// Package geolocation acquires device position fixes for the attendance
// workflow. The device is the source of truth: it reports fixes (or a
// permission denial) and the Locator turns them into a bounded-wait
// getCurrentPosition call.
package geolocation

import (
	"context"
	"time"

	"watchpost/internal/geofence"
	id "watchpost/pkg/domain"
)

// DefaultTimeout bounds how long the workflow waits for a fix.
const DefaultTimeout = 15 * time.Second

// Fix is one reported device position.
type Fix struct {
	Coordinates    geofence.Coordinates `json:"coordinates"`
	AccuracyMeters float64              `json:"accuracy_meters"`
	ReportedAt     time.Time            `json:"reported_at"`
}

// Locator produces the guard's current position.
//
// Error contract (pkg/domain-errors codes):
//   - CodeGeolocationTimeout: no fix arrived within timeout
//   - CodeGeolocationDenied: the device reported a permission denial
//   - CodeGeolocationUnavailable: the fix channel itself failed
//
// None of these are retried automatically; the caller decides, because a
// silent retry could commit an attendance record with stale location data.
//
//go:generate mockgen -source=locator.go -destination=mocks/locator-mocks.go -package=mocks Locator
type Locator interface {
	CurrentPosition(ctx context.Context, guardID id.GuardID, timeout time.Duration) (*Fix, error)
}
