package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"watchpost/internal/geofence"
	"watchpost/internal/geolocation"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// FixSink receives device position reports. Both locator implementations
// satisfy it.
type FixSink interface {
	SubmitFix(ctx context.Context, guardID id.GuardID, fix geolocation.Fix) error
	SubmitDenial(ctx context.Context, guardID id.GuardID) error
}

// DeviceHandler is the inbound half of geolocation: the guard's device posts
// fixes (or a denial) here, and a pending RequestLocation picks them up.
type DeviceHandler struct {
	sink FixSink
}

func NewDeviceHandler(sink FixSink) *DeviceHandler {
	return &DeviceHandler{sink: sink}
}

type reportFixRequest struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`
	Denied         bool     `json:"denied"`
}

func (h *DeviceHandler) handleReportFix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guardID := requestcontext.GuardID(ctx)

	var req reportFixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if req.Denied {
		if err := h.sink.SubmitDenial(ctx, guardID); err != nil {
			writeError(w, dErrors.Wrap(dErrors.CodeInternal, "recording denial", err))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "latitude and longitude are required"))
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "coordinates out of range"))
		return
	}

	fix := geolocation.Fix{
		Coordinates:    geofence.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude},
		AccuracyMeters: req.AccuracyMeters,
		ReportedAt:     requestcontext.Now(ctx),
	}
	if err := h.sink.SubmitFix(ctx, guardID, fix); err != nil {
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "recording fix", err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
