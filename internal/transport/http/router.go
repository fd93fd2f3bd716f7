// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"watchpost/internal/platform/middleware"
	"watchpost/internal/session"
	dErrors "watchpost/pkg/domain-errors"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterDeps carries everything the router wires.
type RouterDeps struct {
	Attendance *AttendanceHandler
	Custody    *CustodyHandler
	Device     *DeviceHandler
	Validator  middleware.TokenValidator
	Gate       *session.Gate
	Logger     *slog.Logger
	// Health lists named dependency checks for /healthz. Nil values are
	// skipped so a memory-backed dev process stays healthy.
	Health map[string]HealthChecker
}

// NewRouter wires all endpoints behind the shared middleware chain. Guard
// operations sit behind the guard gate; review endpoints behind the
// back-office roles.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	requireGuard := middleware.RequireGuard(deps.Validator, deps.Gate, deps.Logger)
	r.Route("/attendance", func(r chi.Router) {
		r.Use(requireGuard)
		r.Post("/location", deps.Attendance.handleRequestLocation)
		r.Post("/location/report", deps.Device.handleReportFix)
		r.Post("/check-in", deps.Attendance.handleCheckIn)
		r.Post("/custody/confirm", deps.Attendance.handleConfirmCustody)
		r.Post("/check-out", deps.Attendance.handleCheckOut)
		r.Get("/status", deps.Attendance.handleStatus)
	})

	requireBackOffice := middleware.RequireRole(deps.Validator, deps.Logger,
		session.RoleOperations, session.RoleAdmin)
	r.Route("/review", func(r chi.Router) {
		r.Use(requireBackOffice)
		r.Get("/flagged", deps.Attendance.handleListFlagged)
		r.Get("/weapons/{weaponID}/history", deps.Custody.handleWeaponHistory)
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"status": httpStatusWord(status), "checks": result})
	}
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler produces the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{"error": string(code)})
}
