package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost:8080/files/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)
	key := ImageKey("images", "abc.png")

	if err := s.Put(ctx, key, strings.NewReader("pixels"), PutOptions{}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	rc, info, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if string(got) != "pixels" {
		t.Errorf("Get() data = %q, want %q", got, "pixels")
	}
	if info.ContentType != "image/png" || info.Size != 6 {
		t.Errorf("Get() info = %+v", info)
	}

	if err := s.Put(ctx, key, strings.NewReader("again"), PutOptions{}); !IsKeyExists(err) {
		t.Errorf("Put() on existing key error = %v, want ErrKeyExists", err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete() of missing key error = %v, want nil", err)
	}
	if _, _, err := s.Get(ctx, key); !IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestLocalStorage_MaxSize(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	err := s.Put(ctx, "images/big.jpg", bytes.NewReader(make([]byte, 11)), PutOptions{MaxSize: 10})
	if !IsTooLarge(err) {
		t.Fatalf("Put() error = %v, want ErrTooLarge", err)
	}
	if ok, _ := s.Exists(ctx, "images/big.jpg"); ok {
		t.Error("oversized object must not be left behind")
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	keys := []string{"", "../etc/passwd", "images/../../x", "/abs/path", "images//x", `images\x`}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			if err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{}); !IsInvalidKey(err) {
				t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestLocalStorage_URL(t *testing.T) {
	s := newTestLocal(t)
	url, err := s.URL(context.Background(), "images/a.jpg", time.Minute)
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if url != "http://localhost:8080/files/images/a.jpg" {
		t.Errorf("URL() = %q", url)
	}
}

func TestKeyHelpers(t *testing.T) {
	name := NewImageName("Leaf.JPG")
	if !strings.HasSuffix(name, ".jpg") || len(name) != 36+4 {
		t.Errorf("NewImageName() = %q", name)
	}
	if got := ThumbnailName("abc.png"); got != "abc_thumb.jpg" {
		t.Errorf("ThumbnailName() = %q", got)
	}
	at := time.Date(2025, 9, 9, 14, 30, 0, 0, time.UTC)
	first := ExportName("inspections", "csv", at)
	second := ExportName("inspections", ".csv", at)
	if first == second {
		t.Errorf("ExportName() repeated %q within one second", first)
	}
	if !strings.HasPrefix(first, "inspections_20250909_143000_") || !strings.HasSuffix(second, ".csv") || strings.HasSuffix(second, "..csv") {
		t.Errorf("ExportName() = %q, %q", first, second)
	}
	if got := ExportKey("exports", 7, first); got != "exports/7/"+first {
		t.Errorf("ExportKey() = %q", got)
	}
	if ExportKey("exports", 7, first) == ExportKey("exports", 8, first) {
		t.Error("ExportKey() ignores the owner")
	}
	for _, bad := range []string{"", "..", "a/b", `a\b`, "../7/x.csv"} {
		if IsPlainName(bad) {
			t.Errorf("IsPlainName(%q) = true", bad)
		}
	}
	if !IsPlainName(first) {
		t.Errorf("IsPlainName(%q) = false", first)
	}
	if got := DetectContentType("", "x.xlsx", nil); !strings.HasPrefix(got, "application/vnd.openxmlformats") {
		t.Errorf("DetectContentType(xlsx) = %q", got)
	}
}
