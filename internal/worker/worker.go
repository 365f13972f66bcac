// Package worker contains methods for worker to init at start, and to process queued jobs
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/UnendingLoop/JoinImages/internal/mwlogger"
	"github.com/UnendingLoop/JoinImages/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// NoopPublisher - ЗАГЛУШКА, функциональность настоящего паблишера в очередь не нужна в рамках работы воркера
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error {
	return nil
}

type JobWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
}

// Committer - подтверждение обработанного сообщения, реализуется wbf-консьюмером
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	storage      service.ImageStorage
	service      JobWorkerService
	pipeline     imageproc.Pipeline
	queue        <-chan kafkago.Message
	consumer     Committer
	resultPrefix string
}

func NewWorkerInstance(strg service.ImageStorage, svc JobWorkerService, pipe imageproc.Pipeline, q <-chan kafkago.Message, cons Committer, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, pipeline: pipe, queue: q, consumer: cons, resultPrefix: resPr}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			logger := zlog.Logger.With().Str("job", id).Logger()
			jobCtx := mwlogger.WithLogger(ctx, logger)

			if err := w.initProcessor(jobCtx, id); err != nil && !errors.Is(err, model.ErrJobNotFound) {
				logger.Error().Err(err).Msg("Task failed")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch job %q from DB: %w", id, err)
	}
	// проверить статус
	switch task.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("already in progress")
	}

	// на всякий случай проверить поле с результатом
	if strings.HasPrefix(task.ResultKey, w.resultPrefix) && task.ResultKey != "" {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done job in DB: %w", err)
		}
		return nil
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of job %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем саму операцию
	if pErr := w.processTask(ctx, task); pErr != nil {
		task.Status = model.StatusFailed
		task.ErrMsg = model.StringSlice{pErr.Error()}
		if uErr := w.service.SaveResult(ctx, task); uErr != nil {
			return fmt.Errorf("failed to set status of job %q to `failed` in DB: %w \nAFTER\n error while processing job: %w", id, uErr, pErr)
		}
		// задача закрыта со статусом failed, повторять нечего
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Err(pErr).Msg("Job marked as failed")
		return nil
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Job) error {
	// достать из storage исходник
	src, _, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch source image from storage: %w", err)
	}
	raw, err := io.ReadAll(src)
	closeFileFlow(src)
	if err != nil {
		return fmt.Errorf("worker failed to read source image: %w", err)
	}

	img, err := imageproc.DecodeBytes(w.pipeline.Backend, raw)
	if err != nil {
		return err
	}

	// выполнить операцию
	var result []byte
	switch task.Operation {
	case model.OpJoin:
		saved, err := w.pipeline.JoinRaster(img, task.Folder, task.FileName, task.Caption)
		if err != nil {
			return err
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Info().Str("path", saved.Path).Msg("Capture saved")
		result = saved.Data
	case model.OpResize:
		result, err = w.pipeline.ResizeRaster(img, task.SizeLimit)
		if err != nil {
			return err
		}
	default:
		return model.ErrIncorrectOp
	}

	// оба варианта отдают JPEG
	resKey := w.resultPrefix + task.UID.String() + model.GetImageFileExt[model.JPEG]
	if err := w.storage.Put(ctx, resKey, int64(len(result)), model.JPEG, bytes.NewReader(result)); err != nil {
		return fmt.Errorf("worker failed to put result image to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey
	task.ErrMsg = nil

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Worker failed to close fileflow")
	}
}
