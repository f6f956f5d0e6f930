package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// InspectionHandler handles inspection CRUD and search.
type InspectionHandler struct {
	inspectionService service.InspectionService
	logger            *slog.Logger
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(inspectionService service.InspectionService, logger *slog.Logger) *InspectionHandler {
	return &InspectionHandler{
		inspectionService: inspectionService,
		logger:            logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all inspection routes with the provided mux.
//
// All routes require authentication via the requireUser middleware.
//
// Routes:
// - GET    /inspections                 -> Search
// - GET    /inspections/my-inspections  -> ListMine
// - GET    /inspections/{id}            -> Get
// - POST   /inspections                 -> Create
// - PUT    /inspections/{id}            -> Update
// - DELETE /inspections/{id}            -> Delete
func (h *InspectionHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /inspections", requireUser(http.HandlerFunc(h.Search)))
	mux.Handle("GET /inspections/my-inspections", requireUser(http.HandlerFunc(h.ListMine)))
	mux.Handle("GET /inspections/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /inspections", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /inspections/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /inspections/{id}", requireUser(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// Request Bodies
// =============================================================================

// createInspectionRequest is the POST body. Dates are kept as text so that
// both RFC3339 and YYYY-MM-DD are accepted.
type createInspectionRequest struct {
	PlantName      string `json:"plantName"`
	InspectionDate string `json:"inspectionDate"`
	Country        string `json:"country"`
	State          string `json:"state"`
	City           string `json:"city"`
	Notes          string `json:"notes"`
}

func (req createInspectionRequest) params(userID int64) (domain.CreateInspectionParams, error) {
	params := domain.CreateInspectionParams{
		UserID:    userID,
		PlantName: req.PlantName,
		Country:   req.Country,
		State:     req.State,
		City:      req.City,
		Notes:     req.Notes,
	}
	if strings.TrimSpace(req.InspectionDate) != "" {
		date, err := domain.ParseDate(req.InspectionDate, false)
		if err != nil {
			return params, domain.NewValidationError("inspection.create", "inspectionDate", "Inspection date must be RFC3339 or YYYY-MM-DD")
		}
		params.InspectionDate = date
	}
	return params, nil
}

// updateInspectionRequest is the PUT body; absent keys are left unchanged.
type updateInspectionRequest struct {
	PlantName      domain.Optional[string] `json:"plantName"`
	InspectionDate domain.Optional[string] `json:"inspectionDate"`
	Country        domain.Optional[string] `json:"country"`
	State          domain.Optional[string] `json:"state"`
	City           domain.Optional[string] `json:"city"`
	Notes          domain.Optional[string] `json:"notes"`
}

func (req updateInspectionRequest) params() (domain.UpdateInspectionParams, error) {
	params := domain.UpdateInspectionParams{
		PlantName: req.PlantName,
		Country:   req.Country,
		State:     req.State,
		City:      req.City,
		Notes:     req.Notes,
	}
	switch {
	case !req.InspectionDate.Set:
	case req.InspectionDate.Null, strings.TrimSpace(req.InspectionDate.Value) == "":
		// absent, null and blank all leave the date unchanged
	default:
		date, err := domain.ParseDate(req.InspectionDate.Value, false)
		if err != nil {
			return params, domain.NewValidationError("inspection.update", "inspectionDate", "Inspection date must be RFC3339 or YYYY-MM-DD")
		}
		params.InspectionDate = domain.Some(date)
	}
	return params, nil
}

// parseSearchFilter reads plantName, status, startDate and endDate. A bare
// endDate covers the whole day.
func parseSearchFilter(r *http.Request) (domain.SearchFilter, error) {
	q := r.URL.Query()
	filter := domain.SearchFilter{
		PlantName: strings.TrimSpace(q.Get("plantName")),
		Status:    strings.TrimSpace(q.Get("status")),
	}

	v := domain.NewValidator("inspection.search")
	if s := q.Get("startDate"); strings.TrimSpace(s) != "" {
		start, err := domain.ParseDate(s, false)
		v.Check(err == nil, "startDate", "Start date must be RFC3339 or YYYY-MM-DD")
		if err == nil {
			filter.StartDate = &start
		}
	}
	if s := q.Get("endDate"); strings.TrimSpace(s) != "" {
		end, err := domain.ParseDate(s, true)
		v.Check(err == nil, "endDate", "End date must be RFC3339 or YYYY-MM-DD")
		if err == nil {
			filter.EndDate = &end
		}
	}
	return filter, v.Err()
}

// =============================================================================
// Handlers
// =============================================================================

// Search lists the caller's inspections matching the query filters.
func (h *InspectionHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	filter, err := parseSearchFilter(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspections, err := h.inspectionService.Search(r.Context(), identity.UserID, filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(inspections))
}

// ListMine returns every inspection of the caller.
func (h *InspectionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspections, err := h.inspectionService.ListByUser(r.Context(), identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(inspections))
}

// Get returns one inspection with its images and analysis.
func (h *InspectionHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	inspection, err := h.inspectionService.GetByID(r.Context(), id, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if inspection == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, inspection)
}

// Create stores a new inspection owned by the caller.
func (h *InspectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req createInspectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	params, err := req.params(identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.inspectionService.Create(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/inspections/"+strconv.FormatInt(inspection.ID, 10))
	writeJSON(w, http.StatusCreated, inspection)
}

// Update applies a partial update.
func (h *InspectionHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateInspectionRequest
	if err := decodeUpdate(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	params, err := req.params()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	inspection, err := h.inspectionService.Update(r.Context(), id, identity.UserID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if inspection == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, inspection)
}

// Delete removes the inspection with its images and analysis.
func (h *InspectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	deleted, err := h.inspectionService.Delete(r.Context(), id, identity.UserID)
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

// nonNil turns a nil slice into an empty one so lists encode as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
