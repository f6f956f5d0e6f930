package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/sqlc-dev/pqtype"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditService records and lists changes to audited entities.
type AuditService interface {
	// Record stores entry with the client details found in ctx. Failures are
	// logged and never returned.
	Record(ctx context.Context, entry domain.AuditEntry)

	// List returns entries newest first.
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error)
}

type auditService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

func NewAuditService(queries *repository.Queries, logger *slog.Logger) AuditService {
	return &auditService{queries: queries, logger: logger}
}

func (s *auditService) Record(ctx context.Context, entry domain.AuditEntry) {
	meta := auth.GetRequestMeta(ctx)

	err := s.queries.CreateAuditLog(ctx, repository.CreateAuditLogParams{
		UserID:     domain.ToNullInt64(entry.UserID),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValues:  s.snapshot(entry.OldValues),
		NewValues:  s.snapshot(entry.NewValues),
		IpAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	})
	if err != nil {
		s.logger.Error("failed to record audit entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"error", err,
		)
	}
}

func (s *auditService) snapshot(v interface{}) pqtype.NullRawMessage {
	if v == nil {
		return pqtype.NullRawMessage{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to marshal audit snapshot", "error", err)
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}
}

func (s *auditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	const op = "audit.list"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if filter.Offset < 0 {
		return nil, domain.Invalid(op, "Offset must not be negative")
	}

	rows, err := s.queries.ListAuditLogs(ctx, repository.ListAuditLogsParams{
		UserID:     domain.ToNullInt64(filter.UserID),
		EntityType: domain.ToNullString(filter.EntityType),
		Action:     domain.ToNullString(filter.Action),
		Limit:      limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list audit logs")
	}

	logs := make([]domain.AuditLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, auditLogToDomain(row))
	}
	return logs, nil
}
