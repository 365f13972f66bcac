// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/kafka"
	"github.com/UnendingLoop/JoinImages/internal/mwlogger"
	"github.com/UnendingLoop/JoinImages/internal/repository"
	"github.com/UnendingLoop/JoinImages/internal/service"
	"github.com/UnendingLoop/JoinImages/internal/storage"
	"github.com/UnendingLoop/JoinImages/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(logLevel(appConfig)); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// собираем пайплайн обработки картинок
	pipe, err := newPipeline(appConfig)
	if err != nil {
		log.Fatalf("Failed to init image pipeline: %v", err)
	}

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(ctx, appConfig, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	// накатываем миграцию
	if err := repository.MigrateWithRetries(ctx, dbConn.Master, "./migrations", 10, 15*time.Second); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// подключиться к хранилищу
	strg, err := storage.NewImgStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresJobRepo(dbConn)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is not reachable: %v", err)
	}
	// подключиться к кафке как продюсер
	topic := appConfig.GetString("KAFKA_TOPIC")
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		log.Fatalf("Failed to init kafka topic %q: %v", topic, err)
	}
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	// создаем экземпляр сервиса
	settings := service.Settings{
		SourcePrefix:   appConfig.GetString("SOURCE_KEY"),
		MirrorPrefix:   appConfig.GetString("MIRROR_KEY"),
		MirrorComposed: appConfig.GetString("MIRROR_COMPOSED") == "true",
	}
	var svc ImageAPIService = service.NewImageService(repo, pub, strg, pipe, settings)
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewImageHandler(svc)
	// сетапим сервер
	mode := appConfig.GetString("GIN_MODE")
	engine := ginext.New(mode)

	engine.GET("/ping", handlers.SimplePinger)
	engine.POST("/images/join", handlers.Join)          // подпись + сохранение в STORAGE_ROOT
	engine.POST("/images/resize", handlers.Resize)      // ужатие под лимит, ответ в base64
	engine.POST("/jobs", handlers.CreateJob)            // асинхронная задача
	engine.GET("/jobs", handlers.GetAllJobs)            // список задач с пагинацией и сортировкой
	engine.GET("/jobs/:id", handlers.GetJob)            // статус задачи
	engine.GET("/jobs/:id/result", handlers.LoadResult) // загрузка результата
	engine.DELETE("/jobs/:id", handlers.Delete)         // удаление

	srv := &http.Server{
		Addr:    ":" + appConfig.GetString("APP_PORT"),
		Handler: mwlogger.NewMWLogger(engine),
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// запускаем фонового воркера для отслеживания подвисших задач
	go recoveryLoop(ctx, svc)

	// ждем отмены контекста для запуска грейсфул закрытия сервера, бд и кафки
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	log.Println("Exiting API...")
}

func logLevel(cfg *config.Config) string {
	if lvl := cfg.GetString("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return "info"
}

func newPipeline(cfg *config.Config) (imageproc.Pipeline, error) {
	backend, err := imageproc.NewBackend(cfg.GetString("IMAGE_BACKEND"))
	if err != nil {
		return imageproc.Pipeline{}, err
	}
	root := cfg.GetString("STORAGE_ROOT")
	if root == "" {
		root = "./captures"
	}
	return imageproc.NewPipeline(backend, imageproc.DefaultOverlayStyle(), root), nil
}

func recoveryLoop(ctx context.Context, svc ImageAPIService) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovery loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.ReviveOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Stopping HTTP server
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Println("Failed to shutdown HTTP server correctly:", err)
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
