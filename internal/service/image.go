package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ImageService manages the photos attached to inspections.
type ImageService interface {
	// Upload validates and stores one photo for an inspection of the user.
	// Returns domain.EINVALID for a bad file and domain.ENOTFOUND if the
	// inspection is absent or owned by someone else.
	Upload(ctx context.Context, inspectionID, userID int64, file domain.UploadFile) (*domain.Image, error)

	// UploadMany validates every file before storing any of them. An empty
	// list or a single invalid file rejects the whole batch, and a failure
	// while storing removes the images already stored.
	UploadMany(ctx context.Context, inspectionID, userID int64, files []domain.UploadFile) ([]domain.Image, error)

	// GetByID returns the image, or nil if absent.
	GetByID(ctx context.Context, id, userID int64) (*domain.Image, error)

	// ListByInspection returns the inspection's images in upload order.
	// Returns domain.ENOTFOUND if the inspection is absent.
	ListByInspection(ctx context.Context, inspectionID, userID int64) ([]domain.Image, error)

	// Open streams the stored file by its generated name. Returns nil if
	// absent. The caller closes the body.
	Open(ctx context.Context, imageName string, userID int64) (*FileContent, error)

	// Thumbnail streams the JPEG thumbnail. Returns nil if the image is
	// absent or has no thumbnail.
	Thumbnail(ctx context.Context, id, userID int64) (*FileContent, error)

	// Delete removes the row and then the files; missing files are tolerated.
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// FileContent is an open stored file ready to be written to a response.
type FileContent struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// =============================================================================
// Implementation
// =============================================================================

type imageService struct {
	queries    *repository.Queries
	storage    storage.Storage
	prefix     string
	thumbnails ThumbnailProcessor
	audit      AuditService
	logger     *slog.Logger
}

// NewImageService creates a new ImageService storing files under prefix.
func NewImageService(
	queries *repository.Queries,
	store storage.Storage,
	prefix string,
	thumbnails ThumbnailProcessor,
	audit AuditService,
	logger *slog.Logger,
) ImageService {
	return &imageService{
		queries:    queries,
		storage:    store,
		prefix:     prefix,
		thumbnails: thumbnails,
		audit:      audit,
		logger:     logger,
	}
}

// =============================================================================
// Upload
// =============================================================================

func (s *imageService) Upload(ctx context.Context, inspectionID, userID int64, file domain.UploadFile) (*domain.Image, error) {
	const op = "image.upload"

	if err := domain.ValidateImageUpload(op, file.Filename, file.Size()); err != nil {
		metrics.ImagesUploaded.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := s.requireInspection(ctx, op, inspectionID, userID); err != nil {
		return nil, err
	}
	return s.store(ctx, op, inspectionID, userID, file)
}

func (s *imageService) UploadMany(ctx context.Context, inspectionID, userID int64, files []domain.UploadFile) ([]domain.Image, error) {
	const op = "image.upload_many"

	if len(files) == 0 {
		return nil, domain.NewValidationError(op, "imageFiles", "No files uploaded")
	}
	for _, f := range files {
		if err := domain.ValidateImageUpload(op, f.Filename, f.Size()); err != nil {
			metrics.ImagesUploaded.WithLabelValues("rejected").Add(float64(len(files)))
			return nil, err
		}
	}
	if err := s.requireInspection(ctx, op, inspectionID, userID); err != nil {
		return nil, err
	}

	images := make([]domain.Image, 0, len(files))
	for _, f := range files {
		img, err := s.store(ctx, op, inspectionID, userID, f)
		if err != nil {
			s.rollback(ctx, images)
			return nil, err
		}
		images = append(images, *img)
	}
	return images, nil
}

// rollback removes the rows and files of images stored earlier in a batch
// that then failed, so a batch upload is all or nothing.
func (s *imageService) rollback(ctx context.Context, images []domain.Image) {
	ctx = context.WithoutCancel(ctx)
	for _, img := range images {
		if _, err := s.queries.DeleteInspectionImage(ctx, img.ID); err != nil {
			s.logger.Error("failed to roll back image row", "image_id", img.ID, "error", err)
			continue
		}
		removeImageFiles(ctx, s.storage, s.prefix, img, s.logger)
	}
	if len(images) > 0 {
		s.logger.Warn("rolled back partial image batch", "count", len(images))
	}
}

func (s *imageService) requireInspection(ctx context.Context, op string, inspectionID, userID int64) error {
	_, err := s.queries.GetInspectionForUser(ctx, repository.GetInspectionForUserParams{ID: inspectionID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "inspection", inspectionID)
		}
		return domain.Internal(err, op, "failed to get inspection")
	}
	return nil
}

// store writes the file and its thumbnail, then records the row. Files are
// removed again if the row cannot be written.
func (s *imageService) store(ctx context.Context, op string, inspectionID, userID int64, file domain.UploadFile) (*domain.Image, error) {
	name := storage.NewImageName(file.Filename)
	contentType := domain.ContentTypeForImageName(name)

	err := s.storage.Put(ctx, storage.ImageKey(s.prefix, name), bytes.NewReader(file.Data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxImageSize,
	})
	if err != nil {
		if storage.IsTooLarge(err) {
			return nil, domain.NewValidationError(op, "imageFile", "File size must not exceed 10MB")
		}
		return nil, domain.Internal(err, op, "failed to store image")
	}

	// Best effort: an image without a thumbnail is still usable.
	thumbName := ""
	if s.thumbnails != nil {
		thumb, err := s.thumbnails.GenerateThumbnail(bytes.NewReader(file.Data), domain.ThumbnailMaxWidth, domain.ThumbnailMaxHeight)
		if err != nil {
			s.logger.Warn("thumbnail generation failed", "image_name", name, "error", err)
		} else {
			candidate := storage.ThumbnailName(name)
			if err := s.storage.Put(ctx, storage.ImageKey(s.prefix, candidate), bytes.NewReader(thumb), storage.PutOptions{
				ContentType: "image/jpeg",
			}); err != nil {
				s.logger.Warn("failed to store thumbnail", "image_name", name, "error", err)
			} else {
				thumbName = candidate
			}
		}
	}

	row, err := s.queries.CreateInspectionImage(ctx, repository.CreateInspectionImageParams{
		InspectionID:     inspectionID,
		ImageName:        name,
		ThumbnailName:    domain.ToNullString(thumbName),
		OriginalFilename: file.Filename,
		ContentType:      contentType,
		SizeBytes:        file.Size(),
	})
	if err != nil {
		removeImageFiles(ctx, s.storage, s.prefix, domain.Image{ImageName: name, ThumbnailName: thumbName}, s.logger)
		return nil, domain.Internal(err, op, "failed to record image")
	}

	img := imageToDomain(row)
	metrics.ImagesUploaded.WithLabelValues("stored").Inc()
	metrics.ImageBytesUploaded.Add(float64(img.SizeBytes))
	s.logger.Info("image uploaded",
		"image_id", img.ID,
		"inspection_id", inspectionID,
		"size", img.SizeBytes,
		"thumbnail", img.HasThumbnail(),
	)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionCreate,
		EntityType: domain.AuditEntityImage,
		EntityID:   strconv.FormatInt(img.ID, 10),
		NewValues:  img,
	})
	return &img, nil
}

// =============================================================================
// Queries
// =============================================================================

func (s *imageService) GetByID(ctx context.Context, id, userID int64) (*domain.Image, error) {
	row, err := s.queries.GetImageForUser(ctx, repository.GetImageForUserParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, "image.get", "failed to get image")
	}
	img := imageToDomain(row)
	return &img, nil
}

func (s *imageService) ListByInspection(ctx context.Context, inspectionID, userID int64) ([]domain.Image, error) {
	const op = "image.list_by_inspection"

	if err := s.requireInspection(ctx, op, inspectionID, userID); err != nil {
		return nil, err
	}
	rows, err := s.queries.ListImagesByInspection(ctx, inspectionID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list images")
	}
	images := make([]domain.Image, 0, len(rows))
	for _, row := range rows {
		images = append(images, imageToDomain(row))
	}
	return images, nil
}

func (s *imageService) Open(ctx context.Context, imageName string, userID int64) (*FileContent, error) {
	const op = "image.open"

	row, err := s.queries.GetImageByNameForUser(ctx, repository.GetImageByNameForUserParams{ImageName: imageName, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to get image")
	}
	return s.open(ctx, op, row.ImageName, domain.ContentTypeForImageName(row.ImageName))
}

func (s *imageService) Thumbnail(ctx context.Context, id, userID int64) (*FileContent, error) {
	const op = "image.thumbnail"

	img, err := s.GetByID(ctx, id, userID)
	if err != nil || img == nil || !img.HasThumbnail() {
		return nil, err
	}
	return s.open(ctx, op, img.ThumbnailName, "image/jpeg")
}

func (s *imageService) open(ctx context.Context, op, name, contentType string) (*FileContent, error) {
	body, info, err := s.storage.Get(ctx, storage.ImageKey(s.prefix, name))
	if err != nil {
		if storage.IsNotFound(err) {
			s.logger.Warn("image file missing from storage", "image_name", name)
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to read image")
	}
	return &FileContent{
		Name:        name,
		ContentType: contentType,
		Size:        info.Size,
		Body:        body,
	}, nil
}

// =============================================================================
// Delete
// =============================================================================

func (s *imageService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	const op = "image.delete"

	img, err := s.GetByID(ctx, id, userID)
	if err != nil || img == nil {
		return false, err
	}

	n, err := s.queries.DeleteInspectionImage(ctx, id)
	if err != nil {
		return false, domain.Internal(err, op, "failed to delete image")
	}
	if n == 0 {
		return false, nil
	}

	removeImageFiles(ctx, s.storage, s.prefix, *img, s.logger)

	s.logger.Info("image deleted", "image_id", id, "inspection_id", img.InspectionID)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionDelete,
		EntityType: domain.AuditEntityImage,
		EntityID:   strconv.FormatInt(id, 10),
		OldValues:  img,
	})
	return true, nil
}
