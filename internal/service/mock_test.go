package service

import (
	"context"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/worker"
)

// =============================================================================
// Mock services for tests of services that depend on other services.
// =============================================================================

type mockInspectionService struct {
	SearchFunc     func(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error)
	ListByUserFunc func(ctx context.Context, userID int64) ([]domain.Inspection, error)
	GetByIDFunc    func(ctx context.Context, id, userID int64) (*domain.Inspection, error)
	CreateFunc     func(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error)
	UpdateFunc     func(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error)
	DeleteFunc     func(ctx context.Context, id, userID int64) (bool, error)
}

func (m *mockInspectionService) Search(ctx context.Context, userID int64, filter domain.SearchFilter) ([]domain.Inspection, error) {
	return m.SearchFunc(ctx, userID, filter)
}

func (m *mockInspectionService) ListByUser(ctx context.Context, userID int64) ([]domain.Inspection, error) {
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockInspectionService) GetByID(ctx context.Context, id, userID int64) (*domain.Inspection, error) {
	return m.GetByIDFunc(ctx, id, userID)
}

func (m *mockInspectionService) Create(ctx context.Context, params domain.CreateInspectionParams) (*domain.Inspection, error) {
	return m.CreateFunc(ctx, params)
}

func (m *mockInspectionService) Update(ctx context.Context, id, userID int64, params domain.UpdateInspectionParams) (*domain.Inspection, error) {
	return m.UpdateFunc(ctx, id, userID, params)
}

func (m *mockInspectionService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	return m.DeleteFunc(ctx, id, userID)
}

type mockUserService struct {
	UserService // unimplemented methods panic
	ListFunc    func(ctx context.Context) ([]domain.User, error)
	GetByIDFunc func(ctx context.Context, id int64) (*domain.User, error)
}

func (m *mockUserService) List(ctx context.Context) ([]domain.User, error) {
	return m.ListFunc(ctx)
}

type mockTaskService struct {
	TaskService // unimplemented methods panic
	EnqueueFunc func(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error)
}

func (m *mockTaskService) Enqueue(ctx context.Context, payload domain.TaskPayload, opts ...worker.EnqueueOption) (*domain.Task, error) {
	return m.EnqueueFunc(ctx, payload, opts...)
}

func (m *mockUserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return m.GetByIDFunc(ctx, id)
}

type mockImageService struct {
	ImageService  // unimplemented methods panic
	ThumbnailFunc func(ctx context.Context, id, userID int64) (*FileContent, error)
}

func (m *mockImageService) Thumbnail(ctx context.Context, id, userID int64) (*FileContent, error) {
	return m.ThumbnailFunc(ctx, id, userID)
}
