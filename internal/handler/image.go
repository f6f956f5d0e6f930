package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

const (
	// Body caps for uploads. They sit above MaxImageSize so that an oversized
	// file reaches the service and is rejected with a field error.
	maxSingleUploadBody   = 2 * domain.MaxImageSize
	maxMultipleUploadBody = 64 << 20

	// multipartMemory is how much of a form is buffered in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20
)

// ImageHandler handles photo upload, listing and download.
type ImageHandler struct {
	imageService service.ImageService
	logger       *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(imageService service.ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		logger:       logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all image routes with the provided mux.
//
// All routes require authentication via the requireUser middleware.
//
// Routes:
// - POST   /images/upload                       -> Upload
// - POST   /images/upload-multiple              -> UploadMultiple
// - GET    /images/{id}                         -> Get
// - GET    /images/{id}/thumbnail               -> ServeThumbnail
// - GET    /images/inspection/{inspectionId}    -> ListByInspection
// - GET    /images/file/{imageName}             -> ServeFile
// - DELETE /images/{id}                         -> Delete
func (h *ImageHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /images/upload", requireUser(http.HandlerFunc(h.Upload)))
	mux.Handle("POST /images/upload-multiple", requireUser(http.HandlerFunc(h.UploadMultiple)))
	mux.Handle("GET /images/{id}", requireUser(http.HandlerFunc(h.Get)))
	// {id}/{action} rather than {id}/thumbnail: the literal file/ and
	// inspection/ patterns must be strictly more specific to register.
	mux.Handle("GET /images/{id}/{action}", requireUser(http.HandlerFunc(h.ServeThumbnail)))
	mux.Handle("GET /images/inspection/{inspectionId}", requireUser(http.HandlerFunc(h.ListByInspection)))
	mux.Handle("GET /images/file/{imageName}", requireUser(http.HandlerFunc(h.ServeFile)))
	mux.Handle("DELETE /images/{id}", requireUser(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// Uploads
// =============================================================================

// Upload stores the multipart field imageFile for the inspection named by
// the form field inspectionId.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspectionID, err := h.parseUploadForm(w, r, maxSingleUploadBody)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var file domain.UploadFile
	if headers := r.MultipartForm.File["imageFile"]; len(headers) > 0 {
		file, err = readUploadFile(headers[0])
		if err != nil {
			InternalErrorResponse(w, r, h.logger, err)
			return
		}
	}

	img, err := h.imageService.Upload(r.Context(), inspectionID, identity.UserID, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/images/"+strconv.FormatInt(img.ID, 10))
	writeJSON(w, http.StatusCreated, img)
}

// UploadMultiple stores every imageFiles part. One bad file rejects the
// whole batch.
func (h *ImageHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	inspectionID, err := h.parseUploadForm(w, r, maxMultipleUploadBody)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	headers := r.MultipartForm.File["imageFiles"]
	files := make([]domain.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUploadFile(fh)
		if err != nil {
			InternalErrorResponse(w, r, h.logger, err)
			return
		}
		files = append(files, file)
	}

	images, err := h.imageService.UploadMany(r.Context(), inspectionID, identity.UserID, files)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("image batch uploaded",
		"inspection_id", inspectionID,
		"user_id", identity.UserID,
		"count", len(images),
	)

	writeJSON(w, http.StatusCreated, nonNil(images))
}

// parseUploadForm parses a multipart body capped at limit and returns the
// inspectionId field.
func (h *ImageHandler) parseUploadForm(w http.ResponseWriter, r *http.Request, limit int64) (int64, error) {
	const op = "image.parse_form"

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return 0, domain.TooLarge(op, fmt.Sprintf("Upload must not exceed %d MB", limit>>20))
		}
		return 0, domain.Invalid(op, "Request must be multipart/form-data")
	}

	raw := strings.TrimSpace(r.FormValue("inspectionId"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(op, "inspectionId", "Inspection ID must be a positive integer")
	}
	return id, nil
}

// readUploadFile reads one part into memory. Parts are bounded by the
// request body cap.
func readUploadFile(fh *multipart.FileHeader) (domain.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	return domain.UploadFile{Filename: fh.Filename, Data: data}, nil
}

// =============================================================================
// Queries
// =============================================================================

// Get returns one image's metadata.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	img, err := h.imageService.GetByID(r.Context(), id, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if img == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, img)
}

// ListByInspection returns the images of one inspection.
func (h *ImageHandler) ListByInspection(w http.ResponseWriter, r *http.Request) {
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

	images, err := h.imageService.ListByInspection(r.Context(), inspectionID, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(images))
}

// ServeFile streams a stored photo by its generated name.
func (h *ImageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	content, err := h.imageService.Open(r.Context(), r.PathValue("imageName"), identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if content == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	h.stream(w, r, content)
}

// ServeThumbnail streams the JPEG thumbnail of an image.
func (h *ImageHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if action := r.PathValue("action"); action != "" && action != "thumbnail" {
		NotFoundResponse(w, r, h.logger)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	content, err := h.imageService.Thumbnail(r.Context(), id, identity.UserID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if content == nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	h.stream(w, r, content)
}

// Delete removes an image row and its files.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	deleted, err := h.imageService.Delete(r.Context(), id, identity.UserID)
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

// stream copies file content to the response and closes it.
func (h *ImageHandler) stream(w http.ResponseWriter, r *http.Request, content *service.FileContent) {
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.ContentType)
	if content.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content.Body); err != nil {
		h.logger.Warn("failed to stream image",
			"name", content.Name,
			"path", r.URL.Path,
			"error", err,
		)
	}
}
