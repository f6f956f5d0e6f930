package service

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
)

// Version is reported by the health endpoints. Overridden at build time with
// -ldflags "-X .../internal/service.Version=...".
var Version = "1.0.0"

// Health status values.
const (
	HealthStatusHealthy   = "Healthy"
	HealthStatusUnhealthy = "Unhealthy"
)

// DatabaseHealth is the result of probing the database.
type DatabaseHealth struct {
	IsHealthy   bool      `json:"isHealthy"`
	UserCount   int64     `json:"userCount"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"lastChecked"`
}

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Database    DatabaseHealth    `json:"database"`
	Services    map[string]string `json:"services"`
	Queue       *domain.TaskStats `json:"queue,omitempty"`
	System      *SystemInfo       `json:"system,omitempty"`
}

// Healthy reports whether every probed dependency is up.
func (r *HealthReport) Healthy() bool {
	return r.Status == HealthStatusHealthy
}

// SystemInfo describes the running process.
type SystemInfo struct {
	MemoryUsageMB  uint64 `json:"memoryUsageMb"`
	Goroutines     int    `json:"goroutines"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	ProcessorCount int    `json:"processorCount"`
	MachineName    string `json:"machineName"`
	GoVersion      string `json:"goVersion"`
}

// HealthService probes the database and the task queue.
type HealthService interface {
	Check(ctx context.Context) *HealthReport
	CheckDetailed(ctx context.Context) *HealthReport
}

type healthService struct {
	db            *sql.DB
	queries       *repository.Queries
	tasks         TaskService
	environment   string
	workerEnabled bool
	startedAt     time.Time
	logger        *slog.Logger
}

// NewHealthService creates a HealthService.
func NewHealthService(db *sql.DB, queries *repository.Queries, tasks TaskService, environment string, workerEnabled bool, logger *slog.Logger) HealthService {
	return &healthService{
		db:            db,
		queries:       queries,
		tasks:         tasks,
		environment:   environment,
		workerEnabled: workerEnabled,
		startedAt:     time.Now(),
		logger:        logger,
	}
}

func (s *healthService) Check(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:      HealthStatusHealthy,
		Timestamp:   time.Now().UTC(),
		Version:     Version,
		Environment: s.environment,
		Database:    s.checkDatabase(ctx),
	}

	workers := "Disabled"
	if s.workerEnabled {
		workers = "Running"
	}
	report.Services = map[string]string{
		"database":       "Connected",
		"backgroundJobs": workers,
		"logging":        "Active",
	}
	if !report.Database.IsHealthy {
		report.Status = HealthStatusUnhealthy
		report.Services["database"] = "Disconnected"
	}
	return report
}

func (s *healthService) CheckDetailed(ctx context.Context) *HealthReport {
	report := s.Check(ctx)

	if report.Database.IsHealthy && s.tasks != nil {
		stats, err := s.tasks.Stats(ctx)
		if err != nil {
			s.logger.Error("queue health check failed", "error", err)
			report.Services["taskQueue"] = "Unavailable"
		} else {
			report.Queue = stats
			report.Services["taskQueue"] = "Available"
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	host, _ := os.Hostname()
	report.System = &SystemInfo{
		MemoryUsageMB:  mem.Alloc / 1024 / 1024,
		Goroutines:     runtime.NumGoroutine(),
		UptimeSeconds:  int64(time.Since(s.startedAt).Seconds()),
		ProcessorCount: runtime.NumCPU(),
		MachineName:    host,
		GoVersion:      runtime.Version(),
	}
	return report
}

func (s *healthService) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result := DatabaseHealth{LastChecked: time.Now().UTC()}
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("database health check failed", "error", err)
		result.Error = "database unreachable"
		return result
	}
	count, err := s.queries.CountUsers(ctx)
	if err != nil {
		s.logger.Error("database health query failed", "error", err)
		result.Error = "database query failed"
		return result
	}
	result.IsHealthy = true
	result.UserCount = count
	return result
}
