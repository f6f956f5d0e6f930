package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/inspections", "/inspections"},
		{"/inspections/42", "/inspections/{id}"},
		{"/inspections/42/analysis", "/inspections/{id}/analysis"},
		{"/images/7/12", "/images/{id}/{id}"},
		{"/images/file/3f2b8c1e-9d4a-4c6b-8f7e-1a2b3c4d5e6f.jpg", "/images/file/{id}"},
		{"/tasks/3f2b8c1e-9d4a-4c6b-8f7e-1a2b3c4d5e6f/cancel", "/tasks/{id}/cancel"},
		{"/health/detailed", "/health/detailed"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := NormalizePath(tt.path); got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/brew/{id}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/brew/9", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/brew/{id}", "418"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	called := false
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	before := testutil.CollectAndCount(HTTPRequestsTotal)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !called {
		t.Fatal("handler not called")
	}
	if got := testutil.CollectAndCount(HTTPRequestsTotal); got != before {
		t.Errorf("series count changed from %d to %d", before, got)
	}
}
