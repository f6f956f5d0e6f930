package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
)

// AnalysisService manages the single analysis attached to an inspection.
// Inspections are checked for ownership first, so another user's analysis
// is reported as absent.
type AnalysisService interface {
	// GetByInspectionID returns the analysis, or nil if absent.
	GetByInspectionID(ctx context.Context, inspectionID, userID int64) (*domain.Analysis, error)

	// Create records the analysis. Returns domain.ENOTFOUND when the
	// inspection is absent and domain.ECONFLICT when it already has one.
	Create(ctx context.Context, userID int64, params domain.CreateAnalysisParams) (*domain.Analysis, error)

	// Update applies a partial update. Returns nil, nil if absent.
	Update(ctx context.Context, inspectionID, userID int64, params domain.UpdateAnalysisParams) (*domain.Analysis, error)

	// Delete removes the analysis. Returns false if absent.
	Delete(ctx context.Context, inspectionID, userID int64) (bool, error)
}

// AnalysisWebhookEvent is the body posted to the configured webhook after an
// analysis is created.
type AnalysisWebhookEvent struct {
	Event           string  `json:"event"`
	InspectionID    int64   `json:"inspectionId"`
	Status          string  `json:"status"`
	ConfidenceScore float64 `json:"confidenceScore"`
}

type analysisService struct {
	queries    *repository.Queries
	tasks      TaskService
	audit      AuditService
	webhookURL string
	logger     *slog.Logger
}

// NewAnalysisService creates an AnalysisService. When webhookURL is set,
// every created analysis queues a WebApiCall task posting to it.
func NewAnalysisService(
	queries *repository.Queries,
	tasks TaskService,
	audit AuditService,
	webhookURL string,
	logger *slog.Logger,
) AnalysisService {
	return &analysisService{
		queries:    queries,
		tasks:      tasks,
		audit:      audit,
		webhookURL: strings.TrimSpace(webhookURL),
		logger:     logger,
	}
}

// ownsInspection reports whether the inspection exists and belongs to userID.
func (s *analysisService) ownsInspection(ctx context.Context, op string, inspectionID, userID int64) (bool, error) {
	_, err := s.queries.GetInspectionForUser(ctx, repository.GetInspectionForUserParams{ID: inspectionID, UserID: userID})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.Internal(err, op, "failed to get inspection")
	}
	return true, nil
}

func (s *analysisService) GetByInspectionID(ctx context.Context, inspectionID, userID int64) (*domain.Analysis, error) {
	const op = "analysis.get"

	owned, err := s.ownsInspection(ctx, op, inspectionID, userID)
	if err != nil || !owned {
		return nil, err
	}

	row, err := s.queries.GetInspectionAnalysis(ctx, inspectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to get analysis")
	}
	return analysisToDomain(row), nil
}

func (s *analysisService) Create(ctx context.Context, userID int64, params domain.CreateAnalysisParams) (*domain.Analysis, error) {
	const op = "analysis.create"

	if err := params.Validate(op); err != nil {
		return nil, err
	}

	owned, err := s.ownsInspection(ctx, op, params.InspectionID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, domain.NotFound(op, "inspection", params.InspectionID)
	}

	row, err := s.queries.CreateInspectionAnalysis(ctx, repository.CreateInspectionAnalysisParams{
		InspectionID:            params.InspectionID,
		Status:                  strings.TrimSpace(params.Status),
		ConfidenceScore:         domain.FormatConfidence(params.ConfidenceScore),
		Description:             params.Description,
		TreatmentRecommendation: params.TreatmentRecommendation,
	})
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when one already exists.
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, domain.Conflict(op, "An analysis already exists for this inspection")
		}
		return nil, domain.Internal(err, op, "failed to create analysis")
	}

	analysis := analysisToDomain(row)
	metrics.AnalysesRecorded.WithLabelValues(analysis.Status).Inc()
	s.logger.Info("analysis created", "inspection_id", analysis.InspectionID, "status", analysis.Status)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionCreate,
		EntityType: domain.AuditEntityAnalysis,
		EntityID:   strconv.FormatInt(analysis.InspectionID, 10),
		NewValues:  analysis,
	})
	s.notifyWebhook(ctx, analysis)

	return analysis, nil
}

// notifyWebhook queues the webhook call. Failure to queue is logged only.
func (s *analysisService) notifyWebhook(ctx context.Context, a *domain.Analysis) {
	if s.webhookURL == "" || s.tasks == nil {
		return
	}
	body, err := json.Marshal(AnalysisWebhookEvent{
		Event:           "analysis.created",
		InspectionID:    a.InspectionID,
		Status:          a.Status,
		ConfidenceScore: a.ConfidenceScore,
	})
	if err != nil {
		s.logger.Error("failed to encode webhook event", "inspection_id", a.InspectionID, "error", err)
		return
	}
	if _, err := s.tasks.Enqueue(ctx, domain.WebAPICallTask{
		URL:    s.webhookURL,
		Method: "POST",
		Body:   body,
	}); err != nil {
		s.logger.Error("failed to queue analysis webhook", "inspection_id", a.InspectionID, "error", err)
	}
}

func (s *analysisService) Update(ctx context.Context, inspectionID, userID int64, params domain.UpdateAnalysisParams) (*domain.Analysis, error) {
	const op = "analysis.update"

	if err := params.Validate(op); err != nil {
		return nil, err
	}

	current, err := s.GetByInspectionID(ctx, inspectionID, userID)
	if err != nil || current == nil {
		return nil, err
	}

	merged := params.Apply(*current)
	row, err := s.queries.UpdateInspectionAnalysis(ctx, repository.UpdateInspectionAnalysisParams{
		InspectionID:            inspectionID,
		Status:                  merged.Status,
		ConfidenceScore:         domain.FormatConfidence(merged.ConfidenceScore),
		Description:             merged.Description,
		TreatmentRecommendation: merged.TreatmentRecommendation,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "failed to update analysis")
	}

	updated := analysisToDomain(row)
	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionUpdate,
		EntityType: domain.AuditEntityAnalysis,
		EntityID:   strconv.FormatInt(inspectionID, 10),
		OldValues:  current,
		NewValues:  updated,
	})
	return updated, nil
}

func (s *analysisService) Delete(ctx context.Context, inspectionID, userID int64) (bool, error) {
	const op = "analysis.delete"

	owned, err := s.ownsInspection(ctx, op, inspectionID, userID)
	if err != nil || !owned {
		return false, err
	}

	n, err := s.queries.DeleteInspectionAnalysis(ctx, inspectionID)
	if err != nil {
		return false, domain.Internal(err, op, "failed to delete analysis")
	}
	if n == 0 {
		return false, nil
	}

	s.audit.Record(ctx, domain.AuditEntry{
		UserID:     userID,
		Action:     domain.AuditActionDelete,
		EntityType: domain.AuditEntityAnalysis,
		EntityID:   strconv.FormatInt(inspectionID, 10),
	})
	return true, nil
}
