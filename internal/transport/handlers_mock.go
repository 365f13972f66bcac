package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/gin-gonic/gin"
)

type mockImageService struct {
	joinFn       func(ctx context.Context, req *model.JoinRequest) (*model.JoinResult, error)
	resizeFn     func(ctx context.Context, req *model.ResizeRequest) (*model.ResizeResult, error)
	createJobFn  func(ctx context.Context, d *model.JobCreateData) (*model.Job, error)
	getFn        func(ctx context.Context, id string) (*model.Job, error)
	deleteFn     func(ctx context.Context, id string) error
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
}

func (m *mockImageService) JoinImagesFromData(ctx context.Context, req *model.JoinRequest) (*model.JoinResult, error) {
	return m.joinFn(ctx, req)
}

func (m *mockImageService) ResizeImageFromData(ctx context.Context, req *model.ResizeRequest) (*model.ResizeResult, error) {
	return m.resizeFn(ctx, req)
}

func (m *mockImageService) CreateJob(ctx context.Context, d *model.JobCreateData) (*model.Job, error) {
	return m.createJobFn(ctx, d)
}

func (m *mockImageService) Get(ctx context.Context, id string) (*model.Job, error) {
	return m.getFn(ctx, id)
}

func (m *mockImageService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockImageService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}
