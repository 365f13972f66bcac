// Package service provides business-logic for the app
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/UnendingLoop/JoinImages/internal/mwlogger"
	"github.com/UnendingLoop/JoinImages/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

type ImageService struct {
	repo      repository.JobRepo
	publisher TaskPublisher
	storage   ImageStorage
	pipeline  imageproc.Pipeline
	settings  Settings
}

// Settings - префиксы ключей в хранилище и флаг зеркалирования сохраненных снимков
type Settings struct {
	SourcePrefix   string
	MirrorPrefix   string
	MirrorComposed bool
}

func NewImageService(repo repository.JobRepo, pub TaskPublisher, strg ImageStorage, pipe imageproc.Pipeline, set Settings) *ImageService {
	return &ImageService{
		repo:      repo,
		publisher: pub,
		storage:   strg,
		pipeline:  pipe,
		settings:  set,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStorage - контракт для работы с хранилищем
type ImageStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// JoinImagesFromData decodes the image, draws the caption and saves the result under the storage root.
// Every failure is reported to the caller.
func (c ImageService) JoinImagesFromData(ctx context.Context, req *model.JoinRequest) (*model.JoinResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if req == nil || req.Image == "" {
		return nil, model.ErrEmptyJoinSource
	}

	res, err := c.pipeline.JoinFromData(req.Image, req.Size, req.Folder, req.FileName, req.Text)
	if err != nil {
		logger.Error().Err(err).Str("folder", req.Folder).Str("filename", req.FileName).Msg("Failed to join image")
		return nil, publicError(err)
	}

	logger.Info().Str("path", res.Path).Int64("size", res.Size).Msg("Capture saved")
	c.mirrorCapture(ctx, res)

	return &model.JoinResult{Result: model.CaptureSuccess, Path: res.Path, Size: res.Size}, nil
}

// ResizeImageFromData shrinks the image into the size limit and returns it as base64 JPEG.
func (c ImageService) ResizeImageFromData(ctx context.Context, req *model.ResizeRequest) (*model.ResizeResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if req == nil || req.Image == "" {
		return nil, model.ErrEmptySource
	}

	encoded, err := c.pipeline.ResizeFromData(req.Image, req.Size)
	if err != nil {
		logger.Error().Err(err).Float64("size_limit_mb", req.Size).Msg("Failed to resize image")
		return nil, publicError(err)
	}

	return &model.ResizeResult{Image: encoded}, nil
}

// зеркалирование в minio - best effort, локальный файл уже сохранен
func (c ImageService) mirrorCapture(ctx context.Context, res *model.PersistedFile) {
	if !c.settings.MirrorComposed || c.storage == nil {
		return
	}
	logger := mwlogger.LoggerFromContext(ctx)

	rel, err := imageproc.RelativeToRoot(c.pipeline.StorageRoot, res.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Capture path is outside storage root, mirror skipped")
		return
	}
	key := path.Join(c.settings.MirrorPrefix, rel)

	if err := c.storage.Put(ctx, key, int64(len(res.Data)), model.JPEG, bytes.NewReader(res.Data)); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Failed to mirror capture to Storage")
	}
}

func (c ImageService) CreateJob(ctx context.Context, data *model.JobCreateData) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newJob := &model.Job{}

	if err := validateNormalizeJob(data, newJob); err != nil {
		return nil, err
	}

	raw, cType, err := sniffSource(c.pipeline.Backend, data.Image)
	if err != nil {
		return nil, err
	}

	newJob.UID = uuid.New()

	// кладем в хранилище исходник
	srcKey := c.settings.SourcePrefix + newJob.UID.String() + model.GetImageFileExt[cType]
	if err := c.storage.Put(ctx, srcKey, int64(len(raw)), cType, bytes.NewReader(raw)); err != nil {
		logger.Error().Err(err).Msg("Failed to save job source in Storage")
		return nil, model.ErrCommon500
	}
	newJob.SourceKey = srcKey

	newJob.Status = model.StatusCreated
	now := time.Now().UTC()
	newJob.CreatedAt = &now

	if err := c.repo.Create(ctx, newJob); err != nil {
		logger.Error().Err(err).Msg("Failed to create job in DB")
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newJob.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish job %q to task-queue", newJob.UID))
		return nil, model.ErrCommon500
	}
	return newJob, nil
}

func (c ImageService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch jobs list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ImageService) Get(ctx context.Context, id string) (*model.Job, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return nil, model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job %q from DB", id))
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ImageService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}

	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch job result %q from Storage", id))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c ImageService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.ErrJobNotFound
		}
		logger.Error().Err(err).Msg("Failed to delete job from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища исходник и результат (если он есть)
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete job source from Storage")
		return model.ErrCommon500
	}
	if res.Status == model.StatusDone && res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete job result from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c ImageService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.ErrJobNotFound // 404
		}
		logger.Error().Err(err).Msg("Failed to update job status in DB")
		return model.ErrCommon500 // 500
	}

	return nil
}

func (c ImageService) SaveResult(ctx context.Context, input *model.Job) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.ErrJobNotFound // 404
		}
		logger.Error().Err(err).Msg("Failed to save job result in DB")
		return model.ErrCommon500 // 500
	}

	return nil
}

func (c ImageService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("job", v).Msg("Failed to publish orphan to queue")
		}
	}
}
