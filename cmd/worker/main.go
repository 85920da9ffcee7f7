package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/app"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/config"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/email"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/ffmpeg"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/metrics"
	miniostorage "github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/minio"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/postgres"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/rabbitmq"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/tracing"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/usecase"
	"github.com/JohnDoeAntler/uma-club-helper-bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting roster worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	fatalOnErr(os.MkdirAll(cfg.TempDir, 0o755), "create temp dir")

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	fatalOnErr(postgres.RunMigrations(cfg.DatabaseURL, "migrations"), "run migrations")

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		ResultBucket: cfg.MinIOResultBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	progressPub := rabbitmq.NewProgressPublisher(pub, cfg.RabbitMQProgressQueue, 2*cfg.ProgressInterval)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Roster analyzer
	analyzer, err := app.NewAnalyzer(app.AnalyzerConfigFrom(cfg), log)
	fatalOnErr(err, "build analyzer")

	// Use case
	uc := usecase.NewProcessRosterUseCase(
		postgres.NewJobRepository(pool),
		storage,
		analyzer,
		postgres.NewSnapshotRepository(pool),
		ffmpeg.NewZipCreator(),
		statusPub, progressPub, dlqPub,
		email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.NotificationTo, log),
		log,
		usecase.ProcessRosterConfig{
			TempDir:          cfg.TempDir,
			MaxRetries:       cfg.MaxRetries,
			ProgressInterval: cfg.ProgressInterval,
			KeepRowCrops:     cfg.KeepRowCrops,
		},
	)

	metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:           cfg.RabbitMQURL,
		Queue:         cfg.RabbitMQProcessingQueue,
		Exchange:      cfg.RabbitMQExchange,
		DLQ:           cfg.RabbitMQDLQ,
		StatusQueue:   cfg.RabbitMQStatusQueue,
		ProgressQueue: cfg.RabbitMQProgressQueue,
		Prefetch:      cfg.RabbitMQPrefetch,
		WorkerCount:   cfg.WorkerCount,
		BaseDelayMs:   cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("roster worker started, consuming messages",
		zap.String("sampler", cfg.SamplerBackend),
		zap.Float64("sample_fps", cfg.SampleFPS),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	consumer.Close()
	pub.Close()
	log.Info("roster worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
