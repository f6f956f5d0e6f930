package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// maxImportBody caps CSV import uploads.
const maxImportBody = 10 << 20

// FileHandler serves spreadsheet exports and CSV imports.
type FileHandler struct {
	fileService service.FileService
	logger      *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService service.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// RegisterRoutes registers export and import routes. Inspection routes are
// scoped to the caller; user routes are admin only.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /files/inspections/export/csv", requireUser(h.exportInspections(domain.ExportFormatCSV)))
	mux.Handle("GET /files/inspections/export/excel", requireUser(h.exportInspections(domain.ExportFormatExcel)))
	mux.Handle("POST /files/inspections/export/async", requireUser(http.HandlerFunc(h.RequestInspectionExport)))
	mux.Handle("GET /files/exports/{name}", requireUser(http.HandlerFunc(h.DownloadExport)))
	mux.Handle("POST /files/inspections/import/csv", requireUser(http.HandlerFunc(h.ImportInspections)))

	mux.Handle("GET /files/users/export/csv", requireAdmin(h.exportUsers(domain.ExportFormatCSV)))
	mux.Handle("GET /files/users/export/excel", requireAdmin(h.exportUsers(domain.ExportFormatExcel)))
	mux.Handle("POST /files/users/import/csv", requireAdmin(http.HandlerFunc(h.ImportUsers)))
}

// =============================================================================
// Exports
// =============================================================================

func (h *FileHandler) exportInspections(format string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.GetIdentityFromRequest(r)
		if identity == nil {
			UnauthorizedResponse(w, r, h.logger)
			return
		}

		file, err := h.fileService.ExportInspections(r.Context(), identity.UserID, format)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		writeAttachment(w, file)
	})
}

func (h *FileHandler) exportUsers(format string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, err := h.fileService.ExportUsers(r.Context(), format)
		if err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		writeAttachment(w, file)
	})
}

// exportTaskResponse is the 202 body of an async export request.
type exportTaskResponse struct {
	TaskID string            `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
	Format string            `json:"format"`
}

// RequestInspectionExport queues a DataExport task. The format query
// parameter defaults to csv; notifyEmail defaults to the caller's address.
func (h *FileHandler) RequestInspectionExport(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	q := r.URL.Query()
	format, ok := domain.ParseExportFormat(q.Get("format"))
	if !ok {
		ErrorResponse(w, r, h.logger, domain.NewValidationError("file.export_async", "format", "Format must be csv or excel"))
		return
	}
	notify := strings.TrimSpace(q.Get("notifyEmail"))
	if notify == "" {
		notify = identity.Email
	}

	task, err := h.fileService.RequestInspectionExport(r.Context(), identity.UserID, format, notify)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusAccepted, exportTaskResponse{
		TaskID: task.ID,
		Status: task.Status,
		Format: format,
	})
}

// DownloadExport serves a finished asynchronous export. Only the user who
// requested it can fetch it; anyone else gets a 404.
func (h *FileHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	file, err := h.fileService.DownloadExport(r.Context(), identity.UserID, r.PathValue("name"))
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

// writeAttachment sends an export as a download.
func writeAttachment(w http.ResponseWriter, file *domain.ExportFile) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// =============================================================================
// Imports
// =============================================================================

// importResponse reports an import. Message is a one-line summary.
type importResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	*domain.ImportResult
}

// ImportInspections creates one inspection per valid CSV row for the caller.
func (h *FileHandler) ImportInspections(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	file, err := openCSVUpload(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer file.Close()

	result, err := h.fileService.ImportInspectionsCSV(r.Context(), identity.UserID, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Message:      fmt.Sprintf("Successfully imported %d inspections", result.Imported),
		Count:        result.Imported,
		ImportResult: result,
	})
}

// ImportUsers validates a users CSV and reports how many rows are usable.
func (h *FileHandler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	file, err := openCSVUpload(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	defer file.Close()

	result, err := h.fileService.ImportUsersCSV(r.Context(), file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Message:      fmt.Sprintf("Successfully imported %d users", result.Imported),
		Count:        result.Imported,
		ImportResult: result,
	})
}

// openCSVUpload returns the multipart field "file" after checking that it
// is present, non-empty and looks like CSV.
func openCSVUpload(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	const op = "file.import"

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.TooLarge(op, "Import file must not exceed 10 MB")
		}
		return nil, domain.Invalid(op, "Request must be multipart/form-data")
	}

	f, fh, err := r.FormFile("file")
	if err != nil || fh.Size == 0 {
		if f != nil {
			f.Close()
		}
		return nil, domain.NewValidationError(op, "file", "No file uploaded")
	}

	isCSV := strings.EqualFold(filepath.Ext(fh.Filename), ".csv") ||
		strings.Contains(strings.ToLower(fh.Header.Get("Content-Type")), "csv")
	if !isCSV {
		f.Close()
		return nil, domain.NewValidationError(op, "file", "File must be a CSV file")
	}
	return f, nil
}
