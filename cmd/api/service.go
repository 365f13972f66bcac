package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/JoinImages/internal/model"
)

type ImageAPIService interface {
	JoinImagesFromData(ctx context.Context, req *model.JoinRequest) (*model.JoinResult, error)
	ResizeImageFromData(ctx context.Context, req *model.ResizeRequest) (*model.ResizeResult, error)
	CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}
