// Package storage connects the app to its object storage
package storage

import (
	"context"
	"time"

	"github.com/UnendingLoop/JoinImages/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// NewImgStorage connects to MinIO and keeps retrying until it succeeds or ctx is done.
func NewImgStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioImageStorage, error) {
	opts := miniostorage.Options{
		Endpoint: cfg.GetString("MINIO_CONTAINER_NAME") + ":9000",
		User:     cfg.GetString("MINIO_USER"),
		Password: cfg.GetString("MINIO_PASS"),
		Bucket:   cfg.GetString("BUCKET_NAME"),
		Secure:   cfg.GetString("MINIO_SECURE") == "true",
	}

	for {
		zlog.Logger.Info().Str("endpoint", opts.Endpoint).Msg("Connecting to image storage...")
		client, err := miniostorage.NewMinioClient(ctx, opts)
		if err == nil {
			zlog.Logger.Info().Msg("Image storage connected")
			return client, nil
		}

		zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to connect to image storage")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
