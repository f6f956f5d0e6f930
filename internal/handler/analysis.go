package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// AnalysisHandler serves the single analysis attached to an inspection.
type AnalysisHandler struct {
	analysisService service.AnalysisService
	logger          *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService service.AnalysisService, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// RegisterRoutes registers the analysis routes. All require a user.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /inspection-analysis/inspection/{inspectionId}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /inspection-analysis", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /inspection-analysis/inspection/{inspectionId}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /inspection-analysis/inspection/{inspectionId}", requireUser(http.HandlerFunc(h.Delete)))
}

func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspectionID, err := pathID(r, "inspectionId")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.GetByInspectionID(r.Context(), inspectionID, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if analysis == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// Create attaches an analysis. A second analysis for the same inspection is
// a 409.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var params domain.CreateAnalysisParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.Create(r.Context(), identity.UserID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/inspection-analysis/inspection/"+strconv.FormatInt(analysis.InspectionID, 10))
	writeJSON(w, http.StatusCreated, analysis)
}

func (h *AnalysisHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspectionID, err := pathID(r, "inspectionId")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var params domain.UpdateAnalysisParams
	if err := decodeUpdate(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	analysis, err := h.analysisService.Update(r.Context(), inspectionID, identity.UserID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if analysis == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspectionID, err := pathID(r, "inspectionId")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	deleted, err := h.analysisService.Delete(r.Context(), inspectionID, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !deleted {
		NotFoundResponse(w, r, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
