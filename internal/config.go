package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string
	Version     string

	// Identity tokens
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Storage Configuration
	StorageProvider string // "local", "r2" or "minio"
	ImagePrefix     string // Key prefix for uploaded inspection images
	ExportPrefix    string // Key prefix for asynchronous export files

	// Base of the authenticated export download route, used in notification emails
	ExportDownloadURL string

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// MinIO Storage
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// Worker Configuration
	WorkerEnabled         bool
	WorkerPollInterval    time.Duration
	WorkerBatchSize       int
	WorkerJobTimeout      time.Duration
	WorkerShutdownTimeout time.Duration

	// Outbound HTTP
	AnalysisWebhookURL string
	WebAPITimeout      time.Duration

	// Comma separated list of origins allowed by CORS; "*" allows any
	CORSAllowedOrigins []string

	// Registration invite codes; when set, POST /auth/register requires one
	RegistrationInviteCodes []string

	// Seed demo data on startup
	SeedOnStart bool

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		Version:  getEnv("APP_VERSION", "1.0.0"),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "agroscan-api"),
		JWTAudience: getEnv("JWT_AUDIENCE", "agroscan-clients"),
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@agroscan.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "AgroScan"),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		ImagePrefix:      getEnv("IMAGE_PREFIX", "images"),
		ExportPrefix:     getEnv("EXPORT_PREFIX", "exports"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/images/file"),

		ExportDownloadURL: getEnv("EXPORT_DOWNLOAD_URL", "http://localhost:8080/files/exports"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "agroscan"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		// Worker defaults
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		WorkerPollInterval:    getEnvDuration("WORKER_POLL_INTERVAL", 30*time.Second),
		WorkerBatchSize:       getEnvInt("WORKER_BATCH_SIZE", 10),
		WorkerJobTimeout:      getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),
		WorkerShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),

		AnalysisWebhookURL: getEnv("ANALYSIS_WEBHOOK_URL", ""),
		WebAPITimeout:      getEnvDuration("WEBAPI_TIMEOUT", 30*time.Second),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RegistrationInviteCodes: getEnvList("REGISTRATION_INVITE_CODES", nil),

		SeedOnStart: getEnvBool("SEED_ON_START", false),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "development-only-secret-change-me-0123456789"
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	// Validate storage configuration
	switch cfg.StorageProvider {
	case "local":
	case "r2":
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	case "minio":
		if cfg.MinIOEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_PROVIDER is 'minio'")
		}
		if cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when STORAGE_PROVIDER is 'minio'")
		}
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER must be one of 'local', 'r2' or 'minio', got: %s", cfg.StorageProvider)
	}

	if cfg.WorkerBatchSize < 1 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be at least 1, got: %d", cfg.WorkerBatchSize)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList parses a comma separated variable, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
