package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

func newTestFileRoutes(mock *mockFileService) func(mux *http.ServeMux) {
	h := NewFileHandler(mock, discardLogger())
	return func(mux *http.ServeMux) { h.RegisterRoutes(mux, passThrough, passThrough) }
}

func TestExportInspections_Attachment(t *testing.T) {
	var gotFormat string
	mock := &mockFileService{
		ExportInspectionsFunc: func(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
			gotFormat = format
			return &domain.ExportFile{
				FileName:    "inspections_20240315.csv",
				ContentType: "text/csv; charset=utf-8",
				Data:        []byte("Id,PlantName\n1,Tomato\n"),
				Rows:        1,
			}, nil
		},
	}

	rec := serve(newTestFileRoutes(mock),
		asUser(httptest.NewRequest(http.MethodGet, "/files/inspections/export/csv", nil), testFarmer))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotFormat != domain.ExportFormatCSV {
		t.Errorf("format = %q, want %q", gotFormat, domain.ExportFormatCSV)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=inspections_20240315.csv" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Id,PlantName") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadExport(t *testing.T) {
	const name = "inspections_20250909_143000_3f2c.csv"
	mock := &mockFileService{
		DownloadExportFunc: func(ctx context.Context, userID int64, got string) (*domain.ExportFile, error) {
			if userID != testFarmer.UserID || got != name {
				return nil, nil
			}
			return &domain.ExportFile{FileName: got, ContentType: "text/csv", Data: []byte("Id\n1\n")}, nil
		},
	}
	routes := newTestFileRoutes(mock)

	rec := serve(routes, asUser(httptest.NewRequest(http.MethodGet, "/files/exports/"+name, nil), testFarmer))
	if rec.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename="+name {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "Id\n1\n" {
		t.Errorf("body = %q", rec.Body.String())
	}

	neighbour := &domain.Identity{UserID: testFarmer.UserID + 1, Email: "neighbour@farm.test", Role: domain.RoleFarmer}
	rec = serve(routes, asUser(httptest.NewRequest(http.MethodGet, "/files/exports/"+name, nil), neighbour))
	if rec.Code != http.StatusNotFound {
		t.Errorf("other user: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = serve(routes, httptest.NewRequest(http.MethodGet, "/files/exports/"+name, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequestInspectionExport(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		want       int
		wantFormat string
		wantNotify string
	}{
		{"defaults", "", http.StatusAccepted, domain.ExportFormatCSV, testFarmer.Email},
		{"excel to other address", "?format=excel&notifyEmail=ops@farm.test", http.StatusAccepted, domain.ExportFormatExcel, "ops@farm.test"},
		{"unknown format", "?format=pdf", http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFormat, gotNotify string
			mock := &mockFileService{
				RequestInspectionExportFunc: func(ctx context.Context, userID int64, format, notifyEmail string) (*domain.Task, error) {
					gotFormat, gotNotify = format, notifyEmail
					return &domain.Task{ID: "task-1", Status: domain.TaskStatusQueued}, nil
				},
			}

			rec := serve(newTestFileRoutes(mock),
				asUser(httptest.NewRequest(http.MethodPost, "/files/inspections/export/async"+tt.query, nil), testFarmer))

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusAccepted {
				return
			}
			if gotFormat != tt.wantFormat || gotNotify != tt.wantNotify {
				t.Errorf("format=%q notify=%q, want %q %q", gotFormat, gotNotify, tt.wantFormat, tt.wantNotify)
			}

			var body exportTaskResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.TaskID != "task-1" || body.Status != domain.TaskStatusQueued {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestImportInspections(t *testing.T) {
	csvData := "PlantName,InspectionDate,Country,State,City,Notes\nTomato,2024-03-15,Australia,NT,Darwin,\n"
	var received string
	mock := &mockFileService{
		ImportInspectionsCSVFunc: func(ctx context.Context, userID int64, r io.Reader) (*domain.ImportResult, error) {
			data, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			received = string(data)
			return &domain.ImportResult{Imported: 1}, nil
		},
	}

	body, contentType := multipartBody(t, "", "file", map[string][]byte{"inspections.csv": []byte(csvData)})
	req := httptest.NewRequest(http.MethodPost, "/files/inspections/import/csv", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(newTestFileRoutes(mock), asUser(req, testFarmer))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if received != csvData {
		t.Errorf("service received %q", received)
	}

	var resp struct {
		Message  string `json:"message"`
		Count    int    `json:"count"`
		Imported int    `json:"imported"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Imported != 1 || resp.Message != "Successfully imported 1 inspections" {
		t.Errorf("response = %+v", resp)
	}
}

func TestImportInspections_RejectsNonCSV(t *testing.T) {
	body, contentType := multipartBody(t, "", "file", map[string][]byte{"photo.png": []byte("not csv")})
	req := httptest.NewRequest(http.MethodPost, "/files/inspections/import/csv", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(newTestFileRoutes(&mockFileService{}), asUser(req, testFarmer))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if msg := decodeErrorBody(t, rec).Error.Fields["file"]; msg != "File must be a CSV file" {
		t.Errorf("file error = %q", msg)
	}
}
