package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal"
	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/email"
	"github.com/25S2-PRT681-Group-D/server/internal/handler"
	"github.com/25S2-PRT681-Group-D/server/internal/invite"
	"github.com/25S2-PRT681-Group-D/server/internal/jobs"
	"github.com/25S2-PRT681-Group-D/server/internal/metrics"
	"github.com/25S2-PRT681-Group-D/server/internal/middleware"
	"github.com/25S2-PRT681-Group-D/server/internal/report"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
	"github.com/25S2-PRT681-Group-D/server/internal/webapi"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	// Initialize storage
	store, err := storage.New(ctx, storage.Config{
		Provider: cfg.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})
	if err != nil {
		return fmt.Errorf("token issuer initialization failed: %w", err)
	}

	// Initialize services
	auditService := service.NewAuditService(repo, logger)
	taskService := service.NewTaskService(repo, logger)
	userService := service.NewUserService(repo, tokens, taskService, auditService, logger)
	inspectionService := service.NewInspectionService(repo, store, cfg.ImagePrefix, auditService, logger)
	imageService := service.NewImageService(repo, store, cfg.ImagePrefix, service.NewImagingProcessor(), auditService, logger)
	analysisService := service.NewAnalysisService(repo, taskService, auditService, cfg.AnalysisWebhookURL, logger)
	fileService := service.NewFileService(inspectionService, userService, taskService, store, cfg.ExportPrefix, logger)
	reportService := service.NewReportService(inspectionService, imageService, userService, report.NewPDFGenerator(), logger)
	healthService := service.NewHealthService(db, repo, taskService, cfg.Env, cfg.WorkerEnabled, logger)

	if cfg.SeedOnStart {
		result, err := service.NewSeeder(db, repo, logger).SeedBase(ctx)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		logger.Info("Seed data loaded",
			"users", result.Users,
			"inspections", result.Inspections,
			"analyses", result.Analyses,
		)
	}

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var w *worker.Worker
	if cfg.WorkerEnabled {
		w, err = newWorker(cfg, repo, store, fileService, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("worker start failed: %w", err)
		}
		logger.Info("Worker started", "poll_interval", cfg.WorkerPollInterval)
	} else {
		logger.Warn("Worker disabled; queued tasks will not be processed")
	}

	// ==========================================================================
	// Middleware
	// ==========================================================================

	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, logger)
	authLimiter := middleware.NewAuthRateLimiter(middleware.AuthRateLimits{}, logger)
	defer authLimiter.Stop()
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if len(cfg.RegistrationInviteCodes) > 0 {
		logger.Info("Registration requires an invite code")
	}
	if !metricsAuth.Enabled() {
		logger.Warn("METRICS_USERNAME/METRICS_PASSWORD not set; /metrics is unprotected")
	}

	requireUser := authMw.RequireUser
	requireAdmin := authMw.RequireAdmin

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	handler.NewHealthHandler(healthService, logger).RegisterRoutes(mux)
	handler.NewAuthHandler(userService, invite.New(cfg.RegistrationInviteCodes), logger).RegisterRoutes(mux, requireUser, handler.AuthRouteLimits{
		Login:    authLimiter.LimitLogin,
		Register: authLimiter.LimitRegister,
	})
	handler.NewInspectionHandler(inspectionService, logger).RegisterRoutes(mux, requireUser)
	handler.NewImageHandler(imageService, logger).RegisterRoutes(mux, requireUser)
	handler.NewAnalysisHandler(analysisService, logger).RegisterRoutes(mux, requireUser)
	handler.NewReportHandler(reportService, logger).RegisterRoutes(mux, requireUser)
	handler.NewFileHandler(fileService, logger).RegisterRoutes(mux, requireUser, requireAdmin)
	handler.NewAdminHandler(taskService, auditService, logger).RegisterRoutes(mux, requireAdmin)

	// Everything else is a JSON 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handler.NotFoundResponse(w, r, logger)
	})

	// Outermost first
	stack := middleware.Stack(
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		metrics.Middleware,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		middleware.NewCORSMiddleware(cfg.CORSAllowedOrigins).Handler,
		authMw.WithIdentity,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           stack(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "version", cfg.Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	// The worker finishes its in-flight task after HTTP traffic has drained.
	if w != nil {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newWorker builds the task worker with a handler for every task kind.
func newWorker(cfg *internal.Config, repo *repository.Queries, store storage.Storage, exporter jobs.Exporter, logger *slog.Logger) (*worker.Worker, error) {
	wcfg := worker.DefaultConfig()
	wcfg.PollInterval = cfg.WorkerPollInterval
	wcfg.BatchSize = cfg.WorkerBatchSize
	wcfg.JobTimeout = cfg.WorkerJobTimeout
	wcfg.ShutdownTimeout = cfg.WorkerShutdownTimeout
	if wcfg.StaleTaskThreshold <= wcfg.JobTimeout {
		wcfg.StaleTaskThreshold = 2 * wcfg.JobTimeout
	}

	w, err := worker.New(repo, wcfg, logger)
	if err != nil {
		return nil, err
	}

	var sender email.Sender
	if cfg.Env == "development" && cfg.SMTPHost == "" {
		sender = email.NewLogSender(logger)
	} else {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, logger)
	}

	w.Register(jobs.NewSendEmailHandler(sender, logger))
	w.Register(jobs.NewWebAPICallHandler(webapi.New(cfg.WebAPITimeout), logger))
	w.Register(jobs.NewDataExportHandler(exporter, store, repo, cfg.ExportPrefix, cfg.ExportDownloadURL, logger))
	return w, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
