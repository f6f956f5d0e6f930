package service

import (
	"errors"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func userToDomain(u repository.User) *domain.User {
	return &domain.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         domain.Role(u.Role),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func inspectionToDomain(i repository.Inspection) domain.Inspection {
	return domain.Inspection{
		ID:             i.ID,
		UserID:         i.UserID,
		PlantName:      i.PlantName,
		InspectionDate: i.InspectionDate,
		Country:        i.Country,
		State:          i.State,
		City:           i.City,
		Notes:          i.Notes,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
		Images:         []domain.Image{},
	}
}

func imageToDomain(i repository.InspectionImage) domain.Image {
	return domain.Image{
		ID:               i.ID,
		InspectionID:     i.InspectionID,
		ImageName:        i.ImageName,
		ThumbnailName:    domain.NullStringValue(i.ThumbnailName),
		OriginalFilename: i.OriginalFilename,
		ContentType:      i.ContentType,
		SizeBytes:        i.SizeBytes,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

func analysisToDomain(a repository.InspectionAnalysis) *domain.Analysis {
	return &domain.Analysis{
		InspectionID:            a.InspectionID,
		Status:                  a.Status,
		ConfidenceScore:         domain.ParseConfidence(a.ConfidenceScore),
		Description:             a.Description,
		TreatmentRecommendation: a.TreatmentRecommendation,
		CreatedAt:               a.CreatedAt,
		UpdatedAt:               a.UpdatedAt,
	}
}

func taskToDomain(t repository.BackgroundTask) *domain.Task {
	return &domain.Task{
		ID:           t.ID,
		Kind:         domain.TaskKind(t.TaskName),
		Data:         t.TaskData,
		Status:       domain.TaskStatus(t.Status),
		CreatedAt:    t.CreatedAt,
		ScheduledAt:  t.ScheduledAt,
		StartedAt:    domain.NullTimeValue(t.StartedAt),
		CompletedAt:  domain.NullTimeValue(t.CompletedAt),
		Attempts:     int(t.Attempts),
		MaxAttempts:  int(t.MaxAttempts),
		ErrorMessage: domain.NullStringValue(t.ErrorMessage),
	}
}

func auditLogToDomain(l repository.AuditLog) domain.AuditLog {
	out := domain.AuditLog{
		ID:         l.ID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		IPAddress:  l.IpAddress,
		UserAgent:  l.UserAgent,
		Timestamp:  l.CreatedAt,
	}
	if l.UserID.Valid {
		id := l.UserID.Int64
		out.UserID = &id
	}
	if l.OldValues.Valid {
		out.OldValues = l.OldValues.RawMessage
	}
	if l.NewValues.Valid {
		out.NewValues = l.NewValues.RawMessage
	}
	return out
}
