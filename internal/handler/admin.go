package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AdminHandler exposes the task queue and the audit log to administrators.
type AdminHandler struct {
	taskService  service.TaskService
	auditService service.AuditService
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(taskService service.TaskService, auditService service.AuditService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		taskService:  taskService,
		auditService: auditService,
		logger:       logger,
	}
}

// RegisterRoutes registers the admin routes behind requireAdmin.
//
// Routes:
// - GET  /tasks             -> ListTasks (?status=&limit=)
// - GET  /tasks/stats       -> TaskStats
// - GET  /tasks/{id}        -> GetTask
// - POST /tasks/{id}/cancel -> CancelTask
// - GET  /audit-logs        -> ListAuditLogs (?userId=&entityType=&action=&limit=&offset=)
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /tasks", requireAdmin(http.HandlerFunc(h.ListTasks)))
	mux.Handle("GET /tasks/stats", requireAdmin(http.HandlerFunc(h.TaskStats)))
	mux.Handle("GET /tasks/{id}", requireAdmin(http.HandlerFunc(h.GetTask)))
	mux.Handle("POST /tasks/{id}/cancel", requireAdmin(http.HandlerFunc(h.CancelTask)))
	mux.Handle("GET /audit-logs", requireAdmin(http.HandlerFunc(h.ListAuditLogs)))
}

// =============================================================================
// Tasks
// =============================================================================

func (h *AdminHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status != "" && !status.IsValid() {
		ErrorResponse(w, r, h.logger, domain.NewValidationError("admin.list_tasks", "status",
			"Status must be one of Queued, Processing, Completed, Failed or Cancelled"))
		return
	}

	limit, err := listLimit(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tasks, err := h.taskService.List(r.Context(), status, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(tasks))
}

// taskStatsResponse adds the total to the per-status counts.
type taskStatsResponse struct {
	*domain.TaskStats
	Total int64 `json:"total"`
}

func (h *AdminHandler) TaskStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.Stats(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, taskStatsResponse{TaskStats: stats, Total: stats.Total()})
}

func (h *AdminHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if task == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// cancelResponse reports whether a Queued task was cancelled.
type cancelResponse struct {
	TaskID    string `json:"taskId"`
	Cancelled bool   `json:"cancelled"`
}

// CancelTask cancels a Queued task. A task that is absent or already past
// Queued answers 200 with cancelled=false.
func (h *AdminHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	cancelled, err := h.taskService.Cancel(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, cancelResponse{TaskID: id, Cancelled: cancelled})
}

// =============================================================================
// Audit Log
// =============================================================================

func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := domain.NewValidator("admin.list_audit_logs")

	userID, err := queryInt(r, "userId", 0)
	v.Check(err == nil, "userId", "Must be a non-negative integer")
	limit, err := listLimit(r)
	v.Check(err == nil, "limit", "Must be between 1 and 500")
	offset, err := queryInt(r, "offset", 0)
	v.Check(err == nil, "offset", "Must be a non-negative integer")
	if err := v.Err(); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	logs, err := h.auditService.List(r.Context(), domain.AuditFilter{
		UserID:     int64(userID),
		EntityType: strings.TrimSpace(q.Get("entityType")),
		Action:     strings.TrimSpace(q.Get("action")),
		Limit:      limit,
		Offset:     int32(offset),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(logs))
}

// listLimit reads ?limit= within 1..maxListLimit.
func listLimit(r *http.Request) (int32, error) {
	n, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, domain.NewValidationError("handler.list_limit", "limit", "Must be between 1 and 500")
	}
	return int32(n), nil
}
