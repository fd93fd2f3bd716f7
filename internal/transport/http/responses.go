package httptransport

import (
	"time"

	"watchpost/internal/attendance"
	"watchpost/internal/custody"
	"watchpost/internal/geofence"
	"watchpost/internal/geolocation"
)

type coordinatesResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func toCoordinates(c geofence.Coordinates) coordinatesResponse {
	return coordinatesResponse{Latitude: c.Latitude, Longitude: c.Longitude}
}

type fixResponse struct {
	Coordinates    coordinatesResponse `json:"coordinates"`
	AccuracyMeters float64             `json:"accuracy_meters"`
	ReportedAt     time.Time           `json:"reported_at"`
}

func toFix(f *geolocation.Fix) *fixResponse {
	if f == nil {
		return nil
	}
	return &fixResponse{
		Coordinates:    toCoordinates(f.Coordinates),
		AccuracyMeters: f.AccuracyMeters,
		ReportedAt:     f.ReportedAt,
	}
}

type recordResponse struct {
	ID                 string               `json:"id"`
	GuardID            string               `json:"guard_id"`
	PostID             string               `json:"post_id"`
	CheckInAt          time.Time            `json:"check_in_at"`
	CheckInCoordinates coordinatesResponse  `json:"check_in_coordinates"`
	InsideGeofence     bool                 `json:"inside_geofence"`
	DistanceMeters     *float64             `json:"distance_meters,omitempty"`
	Status             string               `json:"status"`
	CheckOutAt         *time.Time           `json:"check_out_at,omitempty"`
	CheckOutCoords     *coordinatesResponse `json:"check_out_coordinates,omitempty"`
}

func toRecord(r *attendance.Record) *recordResponse {
	if r == nil {
		return nil
	}
	resp := &recordResponse{
		ID:                 r.ID.String(),
		GuardID:            r.GuardID.String(),
		PostID:             r.PostID.String(),
		CheckInAt:          r.CheckInAt,
		CheckInCoordinates: toCoordinates(r.CheckInCoordinates),
		InsideGeofence:     r.InsideGeofence,
		DistanceMeters:     r.DistanceMeters,
		Status:             string(r.Status),
		CheckOutAt:         r.CheckOutAt,
	}
	if r.CheckOutCoordinates != nil {
		coords := toCoordinates(*r.CheckOutCoordinates)
		resp.CheckOutCoords = &coords
	}
	return resp
}

type checkInResponse struct {
	Record          *recordResponse `json:"record,omitempty"`
	CustodyRequired bool            `json:"custody_required"`
	ExpectedAmmo    int             `json:"expected_ammo,omitempty"`
}

type statusResponse struct {
	State           string          `json:"state"`
	Record          *recordResponse `json:"record,omitempty"`
	Fix             *fixResponse    `json:"fix,omitempty"`
	CustodyRequired bool            `json:"custody_required"`
	ExpectedAmmo    int             `json:"expected_ammo,omitempty"`
}

type logEntryResponse struct {
	ID           string    `json:"id"`
	WeaponID     string    `json:"weapon_id"`
	GuardID      string    `json:"guard_id"`
	PostID       string    `json:"post_id"`
	Action       string    `json:"action"`
	AmmoObserved int       `json:"ammo_observed"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toLogEntries(entries []custody.LogEntry) []logEntryResponse {
	out := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryResponse{
			ID:           e.ID.String(),
			WeaponID:     e.WeaponID.String(),
			GuardID:      e.GuardID.String(),
			PostID:       e.PostID.String(),
			Action:       string(e.Action),
			AmmoObserved: e.AmmoObserved,
			Notes:        e.Notes,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
