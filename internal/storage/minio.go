package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage implements Storage on a MinIO server or any S3-compatible
// endpoint minio-go can talk to.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinIOStorage connects to the server and creates the bucket when it
// doesn't exist yet.
func NewMinIOStorage(ctx context.Context, cfg MinIOConfig, logger *slog.Logger) (*MinIOStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created MinIO bucket", "bucket", cfg.Bucket)
	}

	logger.Info("initialized MinIO storage",
		"endpoint", cfg.Endpoint,
		"bucket", cfg.Bucket,
		"ssl", cfg.UseSSL,
	)

	return &MinIOStorage{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

func (s *MinIOStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := validateKey(key); err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return &StorageError{Op: "Put", Key: key, Err: fmt.Errorf("failed to check existence: %w", err)}
		}
		if exists {
			return &StorageError{Op: "Put", Key: key, Err: ErrKeyExists}
		}
	}

	body, size, err := bufferWithLimit(data, opts.MaxSize)
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: err}
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: DetectContentType(opts.ContentType, key, nil),
	})
	if err != nil {
		return &StorageError{Op: "Put", Key: key, Err: wrapMinIOError(err)}
	}

	s.logger.Debug("stored object in MinIO", "key", key, "size", info.Size, "etag", info.ETag)
	return nil
}

func (s *MinIOStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: err}
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: wrapMinIOError(err)}
	}

	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, &StorageError{Op: "Get", Key: key, Err: wrapMinIOError(err)}
	}

	return obj, ObjectInfo{
		Key:          key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
	}, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &StorageError{Op: "Delete", Key: key, Err: err}
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		wrapped := wrapMinIOError(err)
		if wrapped == ErrNotFound {
			return nil
		}
		return &StorageError{Op: "Delete", Key: key, Err: wrapped}
	}

	s.logger.Debug("deleted object from MinIO", "key", key)
	return nil
}

// URL returns a presigned GET valid for expires (one hour by default).
func (s *MinIOStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := validateKey(key); err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: err}
	}
	if expires == 0 {
		expires = time.Hour
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expires, nil)
	if err != nil {
		return "", &StorageError{Op: "URL", Key: key, Err: fmt.Errorf("failed to generate presigned URL: %w", err)}
	}
	return u.String(), nil
}

func (s *MinIOStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, &StorageError{Op: "Exists", Key: key, Err: err}
	}

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		wrapped := wrapMinIOError(err)
		if wrapped == ErrNotFound {
			return false, nil
		}
		return false, &StorageError{Op: "Exists", Key: key, Err: wrapped}
	}
	return true, nil
}

func wrapMinIOError(err error) error {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.Code == "AccessDenied" || resp.StatusCode == http.StatusForbidden:
		return ErrAccessDenied
	}
	return fmt.Errorf("MinIO operation failed: %w", err)
}

// bufferWithLimit reads data into memory so the object size is known up
// front, failing with ErrTooLarge once maxSize (when positive) is exceeded.
func bufferWithLimit(data io.Reader, maxSize int64) (*bytes.Reader, int64, error) {
	src := data
	if maxSize > 0 {
		src = io.LimitReader(data, maxSize+1)
	}
	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read object: %w", err)
	}
	if maxSize > 0 && int64(len(buf)) > maxSize {
		return nil, 0, ErrTooLarge
	}
	return bytes.NewReader(buf), int64(len(buf)), nil
}
