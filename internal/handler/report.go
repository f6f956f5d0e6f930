package handler

import (
	"log/slog"
	"net/http"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// ReportHandler serves printable inspection reports.
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers report routes.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /inspections/{id}/report", requireUser(http.HandlerFunc(h.InspectionReport)))
}

// InspectionReport downloads the caller's inspection as a PDF.
func (h *ReportHandler) InspectionReport(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	file, err := h.reportService.InspectionReport(r.Context(), id, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if file == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}
	writeAttachment(w, file)
}
