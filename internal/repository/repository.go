// Package repository provides the job store contract, DB connection and migrations
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/UnendingLoop/JoinImages/internal/repository/jobpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type JobRepo interface {
	Create(ctx context.Context, j *model.Job) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Job, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	SaveResult(ctx context.Context, j *model.Job) error
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	FetchOrphans(ctx context.Context, limit int) ([]string, error)
}

func NewPostgresJobRepo(dbconn *dbpg.DB) JobRepo {
	return jobpostgres.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(ctx context.Context, appConfig *config.Config, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	dsnLink := appConfig.GetString("POSTGRES_DSN")

	var lastErr error
	for i := 0; i < retryCount; i++ {
		dbConn, err := dbpg.New(dsnLink, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		lastErr = err
		zlog.Logger.Warn().Err(err).Int("attempt", i+1).Dur("retry_in", idleTime).Msg("Failed to connect to PGDB")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(idleTime):
		}
	}

	return nil, fmt.Errorf("connect to DB after %d attempts: %w", retryCount, lastErr)
}

func MigrateWithRetries(ctx context.Context, db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var lastErr error
	for i := 0; i < retries; i++ {
		if lastErr = runMigrate(db, migrationsPath); lastErr == nil {
			return nil
		}
		zlog.Logger.Warn().Err(lastErr).Int("attempt", i+1).Dur("retry_in", idle).Msg("Migration attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idle):
		}
	}
	return fmt.Errorf("migrations failed after %d attempts: %w", retries, lastErr)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	zlog.Logger.Info().Str("source", sourceURL).Msg("Running migrations")

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	zlog.Logger.Info().Msg("Database migrations applied")
	return nil
}
