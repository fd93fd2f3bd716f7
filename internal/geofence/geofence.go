// Package geofence computes whether a reported position lies within a post's
// circular boundary. Pure arithmetic, no I/O.
package geofence

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6_371_000

// DefaultRadiusMeters is the fixed geofence radius applied to every post.
const DefaultRadiusMeters = 500.0

// Coordinates is a WGS84 latitude/longitude pair in degrees.
// Callers are responsible for ranges: latitude in [-90, 90], longitude in
// [-180, 180]. Out-of-range input is a caller contract violation.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Verdict is the outcome of a geofence evaluation.
type Verdict struct {
	// DistanceMeters is the great-circle distance from the reported position
	// to the post. Nil when the post has no configured coordinates.
	DistanceMeters *float64
	Inside         bool
}

// Evaluate returns the distance between current and target and whether
// current falls within radiusMeters of target. The boundary counts as inside.
//
// A nil target means the post has no mapped coordinates. Policy: such posts
// never block a guard, so the verdict is inside with an unknown distance.
func Evaluate(current Coordinates, target *Coordinates, radiusMeters float64) Verdict {
	if target == nil {
		return Verdict{Inside: true}
	}
	d := Distance(current, *target)
	return Verdict{DistanceMeters: &d, Inside: d <= radiusMeters}
}

// Distance computes the haversine great-circle distance in meters.
func Distance(p, q Coordinates) float64 {
	lat1 := radians(p.Latitude)
	lat2 := radians(q.Latitude)
	dLat := radians(q.Latitude - p.Latitude)
	dLon := radians(q.Longitude - p.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
