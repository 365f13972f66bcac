// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/UnendingLoop/JoinImages/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type ImageHandler struct {
	service ImageService
}

type ImageService interface {
	JoinImagesFromData(ctx context.Context, req *model.JoinRequest) (*model.JoinResult, error)
	ResizeImageFromData(ctx context.Context, req *model.ResizeRequest) (*model.ResizeResult, error)
	CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	Delete(ctx context.Context, id string) error                              // удалить как в базе, так и в minio
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) // прям скачать результат
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) // получить список
}

func NewImageHandler(svc ImageService) *ImageHandler {
	return &ImageHandler{
		service: svc,
	}
}

func (h ImageHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Join - синхронный joinImagesFromData: подпись + сохранение в STORAGE_ROOT
func (h ImageHandler) Join(ctx *ginext.Context) {
	var req model.JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse request body"})
		return
	}
	if req.Image == "" {
		ctx.JSON(400, map[string]string{"error": model.ErrEmptyJoinSource.Error()})
		return
	}

	res, err := h.service.JoinImagesFromData(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

// Resize - синхронный resizeImageFromData: ответом идет base64 JPEG
func (h ImageHandler) Resize(ctx *ginext.Context) {
	var req model.ResizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse request body"})
		return
	}
	if req.Image == "" {
		ctx.JSON(400, map[string]string{"error": model.ErrEmptySource.Error()})
		return
	}

	res, err := h.service.ResizeImageFromData(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) CreateJob(ctx *ginext.Context) {
	var raw model.JobCreateData
	if err := ctx.ShouldBindJSON(&raw); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse request body"})
		return
	}

	res, err := h.service.CreateJob(ctx.Request.Context(), &raw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h ImageHandler) GetAllJobs(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) GetJob(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ImageHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Int64("written", n).Str("job", id).Msg("Failed to write job result to response")
	}
}

func (h ImageHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
