package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

// =============================================================================
// Mock Services
// =============================================================================

var errNotImplemented = errors.New("not implemented")

type mockUserService struct {
	service.UserService // unimplemented methods panic
	RegisterFunc        func(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error)
	LoginFunc           func(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errNotImplemented
}

func (m *mockUserService) Login(ctx context.Context, params domain.LoginParams) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, params)
	}
	return nil, errNotImplemented
}

type mockInspectionService struct {
	SearchFunc     func(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error)
	ListByUserFunc func(ctx context.Context, userID int64) ([]domain.Inspection, error)
	GetByIDFunc    func(ctx context.Context, id, userID int64) (*domain.Inspection, error)
	CreateFunc     func(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error)
	UpdateFunc     func(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error)
	DeleteFunc     func(ctx context.Context, id, userID int64) (bool, error)
}

func (m *mockInspectionService) Search(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, userID, filter)
	}
	return nil, errNotImplemented
}

func (m *mockInspectionService) ListByUser(ctx context.Context, userID int64) ([]domain.Inspection, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockInspectionService) GetByID(ctx context.Context, id, userID int64) (*domain.Inspection, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id, userID)
	}
	return nil, errNotImplemented
}

func (m *mockInspectionService) Create(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, errNotImplemented
}

func (m *mockInspectionService) Update(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, userID, params)
	}
	return nil, errNotImplemented
}

func (m *mockInspectionService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, userID)
	}
	return false, errNotImplemented
}

type mockImageService struct {
	service.ImageService // unimplemented methods panic
	UploadFunc           func(ctx context.Context, inspectionID, userID int64, file domain.UploadFile) (*domain.Image, error)
	UploadManyFunc       func(ctx context.Context, inspectionID, userID int64, files []domain.UploadFile) ([]domain.Image, error)
	OpenFunc             func(ctx context.Context, imageName string, userID int64) (*service.FileContent, error)
	ThumbnailFunc        func(ctx context.Context, id, userID int64) (*service.FileContent, error)
	DeleteFunc           func(ctx context.Context, id, userID int64) (bool, error)
}

func (m *mockImageService) Upload(ctx context.Context, inspectionID, userID int64, file domain.UploadFile) (*domain.Image, error) {
	return m.UploadFunc(ctx, inspectionID, userID, file)
}

func (m *mockImageService) UploadMany(ctx context.Context, inspectionID, userID int64, files []domain.UploadFile) ([]domain.Image, error) {
	return m.UploadManyFunc(ctx, inspectionID, userID, files)
}

func (m *mockImageService) Open(ctx context.Context, imageName string, userID int64) (*service.FileContent, error) {
	return m.OpenFunc(ctx, imageName, userID)
}

func (m *mockImageService) Thumbnail(ctx context.Context, id, userID int64) (*service.FileContent, error) {
	return m.ThumbnailFunc(ctx, id, userID)
}

func (m *mockImageService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	return m.DeleteFunc(ctx, id, userID)
}

type mockAnalysisService struct {
	service.AnalysisService // unimplemented methods panic
	GetByInspectionIDFunc   func(ctx context.Context, inspectionID, userID int64) (*domain.Analysis, error)
	CreateFunc              func(ctx context.Context, userID int64, params domain.CreateAnalysisParams) (*domain.Analysis, error)
	UpdateFunc              func(ctx context.Context, inspectionID, userID int64, params domain.UpdateAnalysisParams) (*domain.Analysis, error)
}

func (m *mockAnalysisService) Update(ctx context.Context, inspectionID, userID int64, params domain.UpdateAnalysisParams) (*domain.Analysis, error) {
	return m.UpdateFunc(ctx, inspectionID, userID, params)
}

func (m *mockAnalysisService) GetByInspectionID(ctx context.Context, inspectionID, userID int64) (*domain.Analysis, error) {
	return m.GetByInspectionIDFunc(ctx, inspectionID, userID)
}

func (m *mockAnalysisService) Create(ctx context.Context, userID int64, params domain.CreateAnalysisParams) (*domain.Analysis, error) {
	return m.CreateFunc(ctx, userID, params)
}

type mockFileService struct {
	service.FileService // unimplemented methods panic
	ExportInspectionsFunc       func(ctx context.Context, userID int64, format string) (*domain.ExportFile, error)
	RequestInspectionExportFunc func(ctx context.Context, userID int64, format, notifyEmail string) (*domain.Task, error)
	ImportInspectionsCSVFunc    func(ctx context.Context, userID int64, r io.Reader) (*domain.ImportResult, error)
	DownloadExportFunc          func(ctx context.Context, userID int64, name string) (*domain.ExportFile, error)
}

func (m *mockFileService) DownloadExport(ctx context.Context, userID int64, name string) (*domain.ExportFile, error) {
	return m.DownloadExportFunc(ctx, userID, name)
}

func (m *mockFileService) ExportInspections(ctx context.Context, userID int64, format string) (*domain.ExportFile, error) {
	return m.ExportInspectionsFunc(ctx, userID, format)
}

func (m *mockFileService) RequestInspectionExport(ctx context.Context, userID int64, format, notifyEmail string) (*domain.Task, error) {
	return m.RequestInspectionExportFunc(ctx, userID, format, notifyEmail)
}

func (m *mockFileService) ImportInspectionsCSV(ctx context.Context, userID int64, r io.Reader) (*domain.ImportResult, error) {
	return m.ImportInspectionsCSVFunc(ctx, userID, r)
}

type mockTaskService struct {
	CancelFunc func(ctx context.Context, id string) (bool, error)
	GetFunc    func(ctx context.Context, id string) (*domain.Task, error)
	ListFunc   func(ctx context.Context, status domain.TaskStatus, limit int32) ([]domain.Task, error)
	StatsFunc  func(ctx context.Context) (*domain.TaskStats, error)
}

func (m *mockTaskService) Enqueue(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error) {
	return nil, errNotImplemented
}

func (m *mockTaskService) Cancel(ctx context.Context, id string) (bool, error) {
	return m.CancelFunc(ctx, id)
}

func (m *mockTaskService) IsQueued(ctx context.Context, id string) (bool, error) {
	return false, errNotImplemented
}

func (m *mockTaskService) QueueCount(ctx context.Context) (int64, error) {
	return 0, errNotImplemented
}

func (m *mockTaskService) Get(ctx context.Context, id string) (*domain.Task, error) {
	return m.GetFunc(ctx, id)
}

func (m *mockTaskService) List(ctx context.Context, status domain.TaskStatus, limit int32) ([]domain.Task, error) {
	return m.ListFunc(ctx, status, limit)
}

func (m *mockTaskService) Stats(ctx context.Context) (*domain.TaskStats, error) {
	return m.StatsFunc(ctx)
}

type mockAuditService struct {
	ListFunc func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error)
}

func (m *mockAuditService) Record(ctx context.Context, entry domain.AuditEntry) {}

func (m *mockAuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLog, error) {
	return m.ListFunc(ctx, filter)
}

type mockHealthService struct {
	report *service.HealthReport
}

func (m *mockHealthService) Check(ctx context.Context) *service.HealthReport {
	return m.report
}

func (m *mockHealthService) CheckDetailed(ctx context.Context) *service.HealthReport {
	return m.report
}

// =============================================================================
// Test Helpers
// =============================================================================

var testFarmer = &domain.Identity{
	UserID:    7,
	Email:     "farmer@agroscan.test",
	Role:      domain.RoleFarmer,
	FirstName: "Jane",
	LastName:  "Doe",
}

// asUser attaches identity to the request context as the auth middleware would.
func asUser(req *http.Request, identity *domain.Identity) *http.Request {
	return req.WithContext(auth.SetIdentity(req.Context(), identity))
}

// passThrough stands in for requireUser and requireAdmin in route tests.
func passThrough(next http.Handler) http.Handler { return next }

// serve routes req through a fresh mux populated by register.
func serve(register func(mux *http.ServeMux), req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type mockReportService struct {
	InspectionReportFunc func(ctx context.Context, inspectionID, userID int64) (*domain.ExportFile, error)
}

func (m *mockReportService) InspectionReport(ctx context.Context, inspectionID, userID int64) (*domain.ExportFile, error) {
	return m.InspectionReportFunc(ctx, inspectionID, userID)
}
