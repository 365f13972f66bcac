// Package main (in worker-subfolder) launches the job consumer
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/kafka"
	"github.com/UnendingLoop/JoinImages/internal/repository"
	"github.com/UnendingLoop/JoinImages/internal/service"
	"github.com/UnendingLoop/JoinImages/internal/storage"
	"github.com/UnendingLoop/JoinImages/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
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
	level := appConfig.GetString("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	if err := zlog.SetLevel(level); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// у воркера свой бэкенд и свой STORAGE_ROOT для join-задач
	backend, err := imageproc.NewBackend(appConfig.GetString("IMAGE_BACKEND"))
	if err != nil {
		log.Fatalf("Failed to init image backend: %v", err)
	}
	root := appConfig.GetString("STORAGE_ROOT")
	if root == "" {
		root = "./captures"
	}
	pipe := imageproc.NewPipeline(backend, imageproc.DefaultOverlayStyle(), root)

	// подключитсья к базе
	dbConn, err := repository.ConnectWithRetries(ctx, appConfig, 5, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	// подкллючиться к хранилищу
	strg, err := storage.NewImgStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to storage: %v", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresJobRepo(dbConn)
	// создаем экземпляр сервиса
	var svc worker.JobWorkerService = service.NewImageService(repo, worker.NoopPublisher{}, strg, pipe, service.Settings{})

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is not reachable: %v", err)
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	w := worker.NewWorkerInstance(strg, svc, pipe, queue, cons, appConfig.GetString("RESULT_KEY"))
	go w.StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
