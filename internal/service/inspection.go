package service

import (
	"context"
	"database/sql"
	"errors"
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

// InspectionService defines the interface for inspection operations. Every
// method is scoped to the calling user; an inspection owned by someone else
// behaves as if it did not exist.
type InspectionService interface {
	// Search returns the user's inspections matching filter, newest
	// inspection date first. Images and analysis are loaded.
	Search(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error)

	// ListByUser returns every inspection of the user.
	ListByUser(ctx context.Context, userID int64) ([]domain.Inspection, error)

	// GetByID returns the inspection, or nil if absent.
	GetByID(ctx context.Context, id, userID int64) (*domain.Inspection, error)

	// Create validates and stores a new inspection.
	// Returns domain.EINVALID for validation errors.
	Create(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error)

	// Update applies a partial update. Returns nil, nil if absent.
	Update(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error)

	// Delete removes the inspection with its images and analysis, then the
	// image files. Returns false if absent.
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// =============================================================================
// Implementation
// =============================================================================

type inspectionService struct {
	queries     *repository.Queries
	storage     storage.Storage
	imagePrefix string
	audit       AuditService
	logger      *slog.Logger
}

// NewInspectionService creates a new InspectionService. storage and
// imagePrefix locate the image files removed on delete.
func NewInspectionService(
	queries *repository.Queries,
	store storage.Storage,
	imagePrefix string,
	audit AuditService,
	logger *slog.Logger,
) InspectionService {
	return &inspectionService{
		queries:     queries,
		storage:     store,
		imagePrefix: imagePrefix,
		audit:       audit,
		logger:      logger,
	}
}

func (s *inspectionService) Search(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error) {
	const op = "inspection.search"

	if err := filter.Validate(op); err != nil {
		return nil, err
	}

	params := repository.SearchInspectionsParams{UserID: userID}
	if filter.PlantName != "" {
		params.PlantName = sql.NullString{String: domain.EscapeLike(filter.PlantName), Valid: true}
	}
	if filter.Status != "" {
		params.Status = sql.NullString{String: filter.Status, Valid: true}
	}
	params.StartDate = domain.ToNullTime(filter.StartDate)
	params.EndDate = domain.ToNullTime(filter.EndDate)

	rows, err := s.queries.SearchInspections(ctx, params)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to search inspections")
	}
	return s.withRelations(ctx, op, rows)
}

func (s *inspectionService) ListByUser(ctx context.Context, userID int64) ([]domain.Inspection, error) {
	return s.Search(ctx, userID, domain.SearchFilter{})
}

func (s *inspectionService) GetByID(ctx context.Context, id, userID int64) (*domain.Inspection, error) {
	const op = "inspection.get"

	row, err := s.queries.GetInspectionForUser(ctx, repository.GetInspectionForUserParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to get inspection")
	}

	list, err := s.withRelations(ctx, op, []repository.Inspection{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *inspectionService) Create(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error) {
	const op = "inspection.create"

	params.Normalize()
	if err := params.Validate(op); err != nil {
		return nil, err
	}

	row, err := s.queries.CreateInspection(ctx, repository.CreateInspectionParams{
		UserID:         params.UserID,
		PlantName:      params.PlantName,
		InspectionDate: params.InspectionDate.UTC(),
		Country:        params.Country,
		State:          params.State,
		City:           params.City,
		Notes:          params.Notes,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create inspection")
	}

	inspection := inspectionToDomain(row)
	metrics.InspectionsCreated.Inc()
	s.logger.Info("inspection created", "inspection_id", inspection.ID, "user_id", inspection.UserID)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     inspection.UserID,
		Action:     domain.AuditActionCreate,
		EntityType: domain.AuditEntityInspection,
		EntityID:   strconv.FormatInt(inspection.ID, 10),
		NewValues:  inspection,
	})
	return &inspection, nil
}

func (s *inspectionService) Update(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error) {
	const op = "inspection.update"

	if err := params.Validate(op); err != nil {
		return nil, err
	}

	current, err := s.queries.GetInspectionForUser(ctx, repository.GetInspectionForUserParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to get inspection")
	}

	before := inspectionToDomain(current)
	merged := params.Apply(before)

	row, err := s.queries.UpdateInspection(ctx, repository.UpdateInspectionParams{
		ID:             id,
		UserID:         userID,
		PlantName:      merged.PlantName,
		InspectionDate: merged.InspectionDate.UTC(),
		Country:        merged.Country,
		State:          merged.State,
		City:           merged.City,
		Notes:          merged.Notes,
	})
	if err != nil {
		// Deleted between the read and the write.
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to update inspection")
	}

	list, err := s.withRelations(ctx, op, []repository.Inspection{row})
	if err != nil {
		return nil, err
	}
	updated := list[0]

	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionUpdate,
		EntityType: domain.AuditEntityInspection,
		EntityID:   strconv.FormatInt(id, 10),
		OldValues:  before,
		NewValues:  inspectionToDomain(row),
	})
	return &updated, nil
}

func (s *inspectionService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	const op = "inspection.delete"

	current, err := s.queries.GetInspectionForUser(ctx, repository.GetInspectionForUserParams{ID: id, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.Internal(err, op, "failed to get inspection")
	}

	// Collect file names before the cascade removes the rows.
	images, err := s.queries.ListImagesByInspection(ctx, id)
	if err != nil {
		return false, domain.Internal(err, op, "failed to list inspection images")
	}

	n, err := s.queries.DeleteInspection(ctx, repository.DeleteInspectionParams{ID: id, UserID: userID})
	if err != nil {
		return false, domain.Internal(err, op, "failed to delete inspection")
	}
	if n == 0 {
		return false, nil
	}

	for _, img := range images {
		removeImageFiles(ctx, s.storage, s.imagePrefix, imageToDomain(img), s.logger)
	}

	s.logger.Info("inspection deleted", "inspection_id", id, "user_id", userID, "images", len(images))
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionDelete,
		EntityType: domain.AuditEntityInspection,
		EntityID:   strconv.FormatInt(id, 10),
		OldValues:  inspectionToDomain(current),
	})
	return true, nil
}

// withRelations converts rows and attaches their images and analyses using
// one query each.
func (s *inspectionService) withRelations(ctx context.Context, op string, rows []repository.Inspection) ([]domain.Inspection, error) {
	result := make([]domain.Inspection, 0, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	ids := make([]int64, len(rows))
	index := make(map[int64]int, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		index[row.ID] = i
		result = append(result, inspectionToDomain(row))
	}

	images, err := s.queries.ListImagesByInspectionIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load inspection images")
	}
	for _, img := range images {
		if i, ok := index[img.InspectionID]; ok {
			result[i].Images = append(result[i].Images, imageToDomain(img))
		}
	}

	analyses, err := s.queries.ListAnalysesByInspectionIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load inspection analyses")
	}
	for _, a := range analyses {
		if i, ok := index[a.InspectionID]; ok {
			result[i].Analysis = analysisToDomain(a)
		}
	}

	return result, nil
}

// removeImageFiles deletes the stored image and its thumbnail. Failures are
// logged; the rows are already gone.
func removeImageFiles(ctx context.Context, store storage.Storage, prefix string, img domain.Image, logger *slog.Logger) {
	keys := []string{storage.ImageKey(prefix, img.ImageName)}
	if img.HasThumbnail() {
		keys = append(keys, storage.ImageKey(prefix, img.ThumbnailName))
	}
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			logger.Warn("failed to delete image file", "key", key, "image_id", img.ID, "error", err)
		}
	}
}
