package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/storage"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
	"github.com/xuri/excelize/v2"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInspections() []domain.Inspection {
	return []domain.Inspection{
		{
			ID:             1,
			PlantName:      "Tomato Plant",
			InspectionDate: time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC),
			Country:        "Australia",
			State:          "NT",
			City:           "Darwin",
			Notes:          "Yellowing, lower leaves",
			Analysis:       &domain.Analysis{InspectionID: 1, Status: "At Risk", ConfidenceScore: 92.5},
		},
		{
			ID:             2,
			PlantName:      "Corn Stalk",
			InspectionDate: time.Date(2025, 9, 11, 0, 0, 0, 0, time.UTC),
			Country:        "Australia",
			State:          "NT",
			City:           "Darwin",
		},
	}
}

func newTestFileService(inspections InspectionService, users UserService, tasks TaskService) *fileService {
	s := NewFileService(inspections, users, tasks, nil, "exports", discardLogger()).(*fileService)
	s.now = func() time.Time { return time.Date(2025, 9, 12, 8, 30, 0, 0, time.UTC) }
	return s
}

// =============================================================================
// Export Tests
// =============================================================================

func TestExportInspections_CSV(t *testing.T) {
	insp := &mockInspectionService{
		ListByUserFunc: func(ctx context.Context, userID int64) ([]domain.Inspection, error) {
			if userID != 7 {
				t.Errorf("ListByUser userID = %d, want 7", userID)
			}
			return sampleInspections(), nil
		},
	}
	s := newTestFileService(insp, nil, nil)

	file, err := s.ExportInspections(context.Background(), 7, "csv")
	if err != nil {
		t.Fatalf("ExportInspections() error = %v", err)
	}
	if file.FileName != "inspections_20250912_083000.csv" || file.ContentType != domain.ContentTypeCSV || file.Rows != 2 {
		t.Errorf("unexpected file metadata: %s %s %d", file.FileName, file.ContentType, file.Rows)
	}

	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	if strings.Join(records[0], "|") != strings.Join(inspectionColumns, "|") {
		t.Errorf("header = %v", records[0])
	}
	if records[1][6] != "Yellowing, lower leaves" || records[1][7] != "At Risk" || records[1][8] != "92.50" {
		t.Errorf("row with analysis = %v", records[1])
	}
	if records[2][2] != "2025-09-11" || records[2][7] != "" || records[2][8] != "" {
		t.Errorf("row without analysis should have empty status and score: %v", records[2])
	}
}

func TestExportInspections_Excel(t *testing.T) {
	insp := &mockInspectionService{
		ListByUserFunc: func(ctx context.Context, userID int64) ([]domain.Inspection, error) {
			return sampleInspections(), nil
		},
	}
	s := newTestFileService(insp, nil, nil)

	file, err := s.ExportInspections(context.Background(), 7, "excel")
	if err != nil {
		t.Fatalf("ExportInspections() error = %v", err)
	}
	if !strings.HasSuffix(file.FileName, ".xlsx") || file.ContentType != domain.ContentTypeXLSX {
		t.Errorf("unexpected file metadata: %s %s", file.FileName, file.ContentType)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer wb.Close()

	status, _ := wb.GetCellValue("Inspections", "H2")
	score, _ := wb.GetCellValue("Inspections", "I2")
	if status != "At Risk" || score != "92.5" {
		t.Errorf("row 2 status/score = %q/%q", status, score)
	}
	status, _ = wb.GetCellValue("Inspections", "H3")
	score, _ = wb.GetCellValue("Inspections", "I3")
	if status != "" || score != "" {
		t.Errorf("row 3 without analysis = %q/%q, want empty cells", status, score)
	}
}

func TestExportInspections_RejectsUnknownFormat(t *testing.T) {
	s := newTestFileService(&mockInspectionService{}, nil, nil)
	_, err := s.ExportInspections(context.Background(), 1, "pdf")
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("ErrorCode = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
}

func TestExportUsers_CSV(t *testing.T) {
	users := &mockUserService{
		ListFunc: func(ctx context.Context) ([]domain.User, error) {
			return []domain.User{
				{ID: 1, Email: "jane.doe@example.com", FirstName: "Jane", LastName: "Doe", Role: domain.RoleFarmer,
					CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
			}, nil
		},
	}
	s := newTestFileService(nil, users, nil)

	file, err := s.ExportUsers(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportUsers() error = %v", err)
	}
	want := "Id,Email,First Name,Last Name,Role,Created At\n1,jane.doe@example.com,Jane,Doe,farmer,2025-01-02T03:04:05Z\n"
	if string(file.Data) != want {
		t.Errorf("ExportUsers() data =\n%s\nwant\n%s", file.Data, want)
	}
}

func TestRequestInspectionExport(t *testing.T) {
	var got domain.TaskPayload
	tasks := &mockTaskService{
		EnqueueFunc: func(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error) {
			got = payload
			return &domain.Task{ID: "t-1", Kind: payload.Kind(), Status: domain.TaskStatusQueued}, nil
		},
	}
	s := newTestFileService(nil, nil, tasks)

	task, err := s.RequestInspectionExport(context.Background(), 3, "xlsx", " Jane.Doe@Example.com ")
	if err != nil {
		t.Fatalf("RequestInspectionExport() error = %v", err)
	}
	if task.ID != "t-1" {
		t.Errorf("task id = %q", task.ID)
	}
	want := domain.DataExportTask{ExportType: "inspections", Format: "excel", UserID: 3, NotifyEmail: "jane.doe@example.com"}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}

	if _, err := s.RequestInspectionExport(context.Background(), 3, "csv", "nope"); domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("invalid notify email error = %v", err)
	}
}

// =============================================================================
// Import Tests
// =============================================================================

func TestImportInspectionsCSV(t *testing.T) {
	var created []domain.CreateInspectionParams
	insp := &mockInspectionService{
		CreateFunc: func(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error) {
			params.Normalize()
			if err := params.Validate("inspection.create"); err != nil {
				return nil, err
			}
			created = append(created, params)
			return &domain.Inspection{ID: int64(len(created)), UserID: params.UserID}, nil
		},
	}
	s := newTestFileService(insp, nil, nil)

	input := "\ufeffId,Plant Name,Inspection Date,Country,State,City,Notes,Status\n" +
		"9,Tomato,2025-09-09,Australia,NT,Darwin,first,Healthy\n" +
		",Corn,not-a-date,Australia,NT,Darwin,,\n" +
		",,2025-09-10,Australia,NT,Darwin,,\n" +
		",Pepper,2025-09-11T10:00:00Z,Australia,NT,Darwin,,\n"

	result, err := s.ImportInspectionsCSV(context.Background(), 5, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportInspectionsCSV() error = %v", err)
	}
	if result.Imported != 2 || result.Skipped != 2 {
		t.Fatalf("result = %+v, want 2 imported and 2 skipped", result)
	}
	if result.Errors[0].Row != 3 || result.Errors[1].Row != 4 {
		t.Errorf("error rows = %+v", result.Errors)
	}
	if created[0].UserID != 5 || created[0].PlantName != "Tomato" || created[0].Notes != "first" {
		t.Errorf("first created = %+v", created[0])
	}
}

func TestImportInspectionsCSV_MissingColumns(t *testing.T) {
	s := newTestFileService(&mockInspectionService{}, nil, nil)

	_, err := s.ImportInspectionsCSV(context.Background(), 1, strings.NewReader("Plant Name,Country\nTomato,AU\n"))
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Fields["file"], "Inspection Date") {
		t.Errorf("error = %v, want missing column validation error", err)
	}

	_, err = s.ImportInspectionsCSV(context.Background(), 1, strings.NewReader(""))
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("empty file error = %v", err)
	}
}

func TestImportInspectionsCSV_StopsOnInternalError(t *testing.T) {
	insp := &mockInspectionService{
		CreateFunc: func(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error) {
			return nil, domain.Internal(errors.New("db down"), "inspection.create", "failed")
		},
	}
	s := newTestFileService(insp, nil, nil)

	input := "Plant Name,Inspection Date,Country,State,City\nTomato,2025-09-09,AU,NT,Darwin\n"
	if _, err := s.ImportInspectionsCSV(context.Background(), 1, strings.NewReader(input)); domain.ErrorCode(err) != domain.EINTERNAL {
		t.Errorf("error = %v, want internal", err)
	}
}

func TestImportUsersCSV(t *testing.T) {
	s := newTestFileService(nil, nil, nil)

	input := "Email,First Name,Last Name,Role\n" +
		"a@example.com,Ann,Lee,researcher\n" +
		"A@Example.com,Ann,Lee,\n" +
		"bad-email,Bob,Ray,farmer\n" +
		"c@example.com,Cy,Doe,owner\n" +
		"d@example.com,Di,Fox,\n"

	result, err := s.ImportUsersCSV(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportUsersCSV() error = %v", err)
	}
	if result.Imported != 2 || result.Skipped != 3 {
		t.Errorf("result = %+v, want 2 accepted and 3 skipped", result)
	}
	if result.Errors[0].Message != "Duplicate email in file" {
		t.Errorf("first error = %+v", result.Errors[0])
	}
}

// =============================================================================
// Export Download Tests
// =============================================================================

func TestDownloadExport_ScopedToOwner(t *testing.T) {
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, discardLogger())
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	ctx := context.Background()
	name := storage.ExportName(domain.ExportTypeInspections, "csv", time.Now())
	if err := store.Put(ctx, storage.ExportKey("exports", 7, name), strings.NewReader("Id\n1\n"), storage.PutOptions{ContentType: domain.ContentTypeCSV}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	s := NewFileService(nil, nil, nil, store, "exports", discardLogger())

	file, err := s.DownloadExport(ctx, 7, name)
	if err != nil {
		t.Fatalf("owner: error = %v", err)
	}
	if file == nil || string(file.Data) != "Id\n1\n" || file.FileName != name {
		t.Fatalf("owner: file = %+v", file)
	}
	if !strings.HasPrefix(file.ContentType, "text/csv") {
		t.Errorf("ContentType = %q", file.ContentType)
	}

	other, err := s.DownloadExport(ctx, 8, name)
	if err != nil || other != nil {
		t.Errorf("other user: file = %+v, err = %v; want nil, nil", other, err)
	}

	for _, bad := range []string{"../7/" + name, "7/" + name, ".."} {
		_, err := s.DownloadExport(ctx, 8, bad)
		if domain.ErrorCode(err) != domain.EINVALID {
			t.Errorf("DownloadExport(%q) code = %q, want %q", bad, domain.ErrorCode(err), domain.EINVALID)
		}
	}
}
