// Package storage provides the object store behind inspection images and
// export files.
//
// Implementations:
// - LocalStorage: a directory on the local filesystem (development)
// - R2Storage: Cloudflare R2 through the S3 API
// - MinIOStorage: a MinIO (or other S3-compatible) server
//
// Keys are slash separated and relative, e.g. "images/<uuid>.jpg".
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for object storage operations.
//
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists when the key is taken and
	// opts.Overwrite is false, and ErrTooLarge when opts.MaxSize is exceeded.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to the object, presigned when the backend supports it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // Detected from the key when empty
	MaxSize     int64  // 0 means no limit
	Overwrite   bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// =============================================================================
// Configuration
// =============================================================================

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
	ProviderMinIO = "minio"
)

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // Root directory, created if missing
	BaseURL  string // Prefix used by URL()
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // Optional custom domain; presigned URLs otherwise
	Region          string // Defaults to "auto"
}

// MinIOConfig holds configuration for a MinIO server.
type MinIOConfig struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// Config selects and configures one provider.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
	MinIO    MinIOConfig
}

// New builds the Storage for cfg.Provider.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	case ProviderMinIO:
		return NewMinIOStorage(ctx, cfg.MinIO, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Key Generation Helpers
// =============================================================================

// NewImageName returns a fresh stored filename: a UUID plus the lower-cased
// extension of the original upload.
func NewImageName(originalFilename string) string {
	return uuid.NewString() + strings.ToLower(path.Ext(originalFilename))
}

// ThumbnailName derives the thumbnail filename for a stored image.
func ThumbnailName(imageName string) string {
	return strings.TrimSuffix(imageName, path.Ext(imageName)) + "_thumb.jpg"
}

// ImageKey joins the image prefix and a stored filename.
// Example: ImageKey("images", "3f2c...e1.png") = "images/3f2c...e1.png"
func ImageKey(prefix, name string) string {
	return joinKey(prefix, name)
}

// ExportName names an export file after its type and creation time plus a
// random suffix, so two exports in the same second never share a name.
// Example: "inspections_20250909_143000_3f2c...e1.csv"
func ExportName(exportType, extension string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", exportType, at.UTC().Format("20060102_150405"), uuid.NewString(), strings.TrimPrefix(extension, "."))
}

// ExportKey places an export under its owner's directory.
// Example: ExportKey("exports", 7, name) = "exports/7/<name>"
func ExportKey(prefix string, userID int64, name string) string {
	return joinKey(joinKey(prefix, strconv.FormatInt(userID, 10)), name)
}

// IsPlainName reports whether name is a single path segment, which is what
// ExportName and NewImageName produce.
func IsPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, "/\\")
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// validateKey rejects keys that are empty, absolute, or that step outside
// the storage root.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return ErrInvalidKey
		}
	}
	return nil
}
