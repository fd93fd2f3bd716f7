package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"watchpost/internal/attendance"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// AttendanceHandler exposes the guard workflow over HTTP. It is a thin layer:
// every decision lives in the workflow, the handler only shuttles JSON.
type AttendanceHandler struct {
	registry *attendance.Registry
	records  attendance.Store
}

func NewAttendanceHandler(registry *attendance.Registry, records attendance.Store) *AttendanceHandler {
	return &AttendanceHandler{registry: registry, records: records}
}

func (h *AttendanceHandler) handleRequestLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflow := h.registry.Acquire(ctx, requestcontext.GuardID(ctx))

	fix, err := workflow.RequestLocation(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": string(workflow.State()),
		"fix":   toFix(fix),
	})
}

func (h *AttendanceHandler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflow := h.registry.Acquire(ctx, requestcontext.GuardID(ctx))

	res, err := workflow.BeginCheckIn(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.CustodyRequired {
		// Nothing is committed yet; the custody confirmation completes it.
		status = http.StatusAccepted
	}
	writeJSON(w, status, checkInResponse{
		Record:          toRecord(res.Record),
		CustodyRequired: res.CustodyRequired,
		ExpectedAmmo:    res.ExpectedAmmo,
	})
}

type confirmCustodyRequest struct {
	ObservedAmmo      *int   `json:"observed_ammo"`
	Notes             string `json:"notes"`
	OutgoingGuardName string `json:"outgoing_guard_name"`
}

func (h *AttendanceHandler) handleConfirmCustody(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmCustodyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.ObservedAmmo == nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "observed_ammo is required"))
		return
	}

	workflow := h.registry.Acquire(ctx, requestcontext.GuardID(ctx))
	record, err := workflow.ConfirmCustody(ctx, attendance.CustodyInput{
		ObservedAmmo:      *req.ObservedAmmo,
		Notes:             req.Notes,
		OutgoingGuardName: req.OutgoingGuardName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkInResponse{Record: toRecord(record)})
}

func (h *AttendanceHandler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflow := h.registry.Acquire(ctx, requestcontext.GuardID(ctx))

	res, err := workflow.BeginCheckOut(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if res.CustodyRequired {
		status = http.StatusAccepted
	}
	writeJSON(w, status, checkInResponse{
		Record:          toRecord(res.Record),
		CustodyRequired: res.CustodyRequired,
		ExpectedAmmo:    res.ExpectedAmmo,
	})
}

func (h *AttendanceHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workflow := h.registry.Acquire(ctx, requestcontext.GuardID(ctx))

	snap := workflow.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		State:           string(snap.State),
		Record:          toRecord(snap.Record),
		Fix:             toFix(snap.Fix),
		CustodyRequired: snap.CustodyRequired,
		ExpectedAmmo:    snap.ExpectedAmmo,
	})
}

// handleListFlagged serves the operations review of the day's geofence
// misses. Day defaults to today (UTC) and accepts YYYY-MM-DD.
func (h *AttendanceHandler) handleListFlagged(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day := requestcontext.Now(ctx).UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "day must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	records, err := h.records.ListFlagged(ctx, day)
	if err != nil {
		writeError(w, dErrors.Wrap(dErrors.CodeInternal, "listing flagged records", err))
		return
	}
	out := make([]*recordResponse, 0, len(records))
	for i := range records {
		out = append(out, toRecord(&records[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}
