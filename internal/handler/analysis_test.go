package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

func TestAnalysisCreate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     int
		location string
	}{
		{"created", nil, http.StatusCreated, "/inspection-analysis/inspection/5"},
		{"already analysed", domain.Conflict("analysis.create", "Analysis already exists for this inspection"), http.StatusConflict, ""},
		{"foreign inspection", domain.NotFound("analysis.create", "inspection", "5"), http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAnalysisService{
				CreateFunc: func(ctx context.Context, userID int64, params domain.CreateAnalysisParams) (*domain.Analysis, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.Analysis{InspectionID: params.InspectionID, Status: params.Status}, nil
				},
			}
			h := NewAnalysisHandler(mock, discardLogger())

			body := `{"inspectionId":5,"status":"Diseased","confidenceScore":87.5,"description":"Leaf spot"}`
			req := asUser(httptest.NewRequest(http.MethodPost, "/inspection-analysis", strings.NewReader(body)), testFarmer)
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestAnalysisGet_MissingIs404(t *testing.T) {
	mock := &mockAnalysisService{
		GetByInspectionIDFunc: func(ctx context.Context, inspectionID, userID int64) (*domain.Analysis, error) {
			return nil, nil
		},
	}
	h := NewAnalysisHandler(mock, discardLogger())
	routes := func(mux *http.ServeMux) { h.RegisterRoutes(mux, passThrough) }

	rec := serve(routes, asUser(httptest.NewRequest(http.MethodGet, "/inspection-analysis/inspection/5", nil), testFarmer))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestAnalysisUpdate_AcceptsFetchedRecord(t *testing.T) {
	var got domain.UpdateAnalysisParams
	mock := &mockAnalysisService{
		UpdateFunc: func(ctx context.Context, inspectionID, userID int64, params domain.UpdateAnalysisParams) (*domain.Analysis, error) {
			got = params
			return &domain.Analysis{InspectionID: inspectionID, Status: params.Status.Value}, nil
		},
	}
	h := NewAnalysisHandler(mock, discardLogger())
	routes := func(mux *http.ServeMux) { h.RegisterRoutes(mux, passThrough) }

	body := `{"id":3,"inspectionId":5,"status":"Healthy","confidenceScore":91.5,"description":null,"createdAt":"2025-01-01T00:00:00Z"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/inspection-analysis/inspection/5", strings.NewReader(body)), testFarmer)
	rec := serve(routes, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got.Status.Value != "Healthy" || got.ConfidenceScore.Value != 91.5 {
		t.Errorf("params = %+v", got)
	}
	if !got.Description.Null {
		t.Errorf("description = %+v, want explicit null", got.Description)
	}
}
