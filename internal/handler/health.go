package handler

import (
	"log/slog"
	"net/http"

	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// HealthHandler serves unauthenticated liveness and readiness probes.
type HealthHandler struct {
	healthService service.HealthService
	logger        *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(healthService service.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
		logger:        logger,
	}
}

// RegisterRoutes registers GET /health and GET /health/detailed.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Check)
	mux.HandleFunc("GET /health/detailed", h.CheckDetailed)
}

// Check answers 200 when healthy and 503 otherwise, with the report as body.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.healthService.Check(r.Context()))
}

// CheckDetailed adds queue and process information.
func (h *HealthHandler) CheckDetailed(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.healthService.CheckDetailed(r.Context()))
}

func (h *HealthHandler) write(w http.ResponseWriter, report *service.HealthReport) {
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health check failed",
			"database_error", report.Database.Error,
			"services", report.Services,
		)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, report)
}
