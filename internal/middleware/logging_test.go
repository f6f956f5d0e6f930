package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Request Logging Middleware Tests
// =============================================================================

func newLoggedHandler(buf *bytes.Buffer, inner http.HandlerFunc) http.Handler {
	logger := slog.New(slog.NewTextHandler(buf, nil))
	return NewRequestLoggingMiddleware(logger).Handler(inner)
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})

	req := httptest.NewRequest("GET", "/inspections/my-inspections", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "field-app/2.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := buf.String()
	for _, want := range []string{"GET", "/inspections/my-inspections", "status=200", "bytes=11", "duration_ms", "192.168.1.1", "field-app/2.1"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log should contain %q, got: %s", want, logOutput)
		}
	}
}

func TestRequestLoggingMiddleware_LogsErrorStatusAsWarning(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/inspections", nil))

	logOutput := buf.String()
	if !strings.Contains(logOutput, "level=WARN") || !strings.Contains(logOutput, "status=500") {
		t.Errorf("5xx should log at WARN with status, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_FirstStatusWins(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.WriteHeader(http.StatusInternalServerError) // superfluous, ignored by net/http
	})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/inspections", nil))

	if !strings.Contains(buf.String(), "status=201") {
		t.Errorf("log should record the first status, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_RedactsSensitiveQueryParams(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("POST", "/files/inspections/export/async?format=csv&notifyEmail=grower%40example.com&token=abc123", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := buf.String()
	if strings.Contains(logOutput, "abc123") || strings.Contains(logOutput, "grower") {
		t.Errorf("log should not contain sensitive values, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "format=csv") {
		t.Errorf("log should keep harmless params, got: %s", logOutput)
	}
}

func TestRequestLoggingMiddleware_SetsRequestID(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/me", nil))
	generated := rec.Header().Get(RequestIDHeader)
	if len(generated) != 36 {
		t.Errorf("generated request id = %q, want a uuid", generated)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "upstream-42" {
		t.Errorf("request id = %q, want the incoming value", got)
	}
	if !strings.Contains(buf.String(), "upstream-42") {
		t.Errorf("log should contain request id, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_SkipsProbes(t *testing.T) {
	paths := []string{"/health", "/health/detailed", "/metrics"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			var buf bytes.Buffer
			called := false
			h := newLoggedHandler(&buf, func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))

			if !called {
				t.Error("handler was not called")
			}
			if buf.Len() != 0 {
				t.Errorf("probe should not be logged, got: %s", buf.String())
			}
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path, query, want string
	}{
		{"/inspections", "", "/inspections"},
		{"/inspections", "plantName=tomato&status=Healthy", "/inspections?plantName=tomato&status=Healthy"},
		{"/x", "Password=hunter2", "/x?Password=[REDACTED]"},
		{"/x", "flag", "/x"},
	}

	for _, tt := range tests {
		if got := sanitizePath(tt.path, tt.query); got != tt.want {
			t.Errorf("sanitizePath(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
		}
	}
}
