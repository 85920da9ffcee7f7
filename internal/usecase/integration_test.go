package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/email"
	miniostorage "github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/minio"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/postgres"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/rabbitmq"
	"github.com/JohnDoeAntler/uma-club-helper-bot/pkg/logger"
)

const (
	itExchange   = "uma.roster"
	itQueue      = "roster.processing"
	itStatus     = "roster.status"
	itProgress   = "roster.progress"
	itDLQ        = "roster.processing.dlq"
	itResultsBkt = "rosters"
)

// TestProcessRosterEndToEnd drives a job through RabbitMQ, MinIO and
// PostgreSQL with a stubbed video analyzer.
func TestProcessRosterEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("roster"),
		tcpostgres.WithUsername("roster_user"),
		tcpostgres.WithPassword("roster_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	pgConnStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(pgConnStr, "../../migrations"))

	// Start RabbitMQ container
	rmqContainer, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	defer rmqContainer.Terminate(ctx)

	rmqURL, err := rmqContainer.AmqpURL(ctx)
	require.NoError(t, err)

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     minioEndpoint,
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UploadBucket: "uploads",
		ResultBucket: itResultsBkt,
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)

	videoKey := "club-1/members.mp4"
	_, err = minioClient.PutObject(ctx, "uploads", videoKey, strings.NewReader("not really a video"), 18, miniogo.PutObjectOptions{
		ContentType: "video/mp4",
	})
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	defer pool.Close()

	rmqConn, err := amqp.Dial(rmqURL)
	require.NoError(t, err)
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, itExchange)
	require.NoError(t, err)

	log, err := logger.New("debug")
	require.NoError(t, err)

	uc := NewProcessRosterUseCase(
		postgres.NewJobRepository(pool),
		storage,
		&stubAnalyzer{result: sampleResult()},
		postgres.NewSnapshotRepository(pool),
		testZipper{},
		rabbitmq.NewStatusPublisher(pub, itStatus),
		rabbitmq.NewProgressPublisher(pub, itProgress, 30*time.Second),
		rabbitmq.NewDLQPublisher(pub, itDLQ),
		email.NewSMTPNotifier("localhost", 1025, "test@test.local", "", log),
		log,
		ProcessRosterConfig{TempDir: t.TempDir(), MaxRetries: 3, ProgressInterval: time.Second},
	)

	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:           rmqURL,
		Queue:         itQueue,
		Exchange:      itExchange,
		DLQ:           itDLQ,
		StatusQueue:   itStatus,
		ProgressQueue: itProgress,
		Prefetch:      1,
		WorkerCount:   1,
		BaseDelayMs:   100,
	}, uc.Execute, log)
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, consumerCancel := context.WithCancel(ctx)
	defer consumerCancel()
	go consumer.Start(consumerCtx)
	time.Sleep(500 * time.Millisecond)

	jobID := uuid.New()
	body, err := json.Marshal(entity.RosterProcessingMessage{
		JobID:     jobID,
		ClubID:    "club-1",
		ChannelID: "chan-1",
		UserID:    "user-1",
		VideoKey:  videoKey,
		FileSize:  18,
	})
	require.NoError(t, err)

	pubCh, err := rmqConn.Channel()
	require.NoError(t, err)
	err = pubCh.PublishWithContext(ctx, itExchange, itQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	require.NoError(t, err)
	pubCh.Close()

	statusCh, err := rmqConn.Channel()
	require.NoError(t, err)
	defer statusCh.Close()

	statusMsgs, err := statusCh.Consume(itStatus, "", true, false, false, false, nil)
	require.NoError(t, err)

	var status entity.RosterStatusMessage
	select {
	case delivery := <-statusMsgs:
		require.NoError(t, json.Unmarshal(delivery.Body, &status))
	case <-time.After(2 * time.Minute):
		t.Fatal("timeout waiting for status message")
	}

	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Len(t, status.Members, 2)

	_, err = minioClient.StatObject(ctx, itResultsBkt, status.ResultKey, miniogo.StatObjectOptions{})
	require.NoError(t, err)

	var dbStatus string
	var members int
	err = pool.QueryRow(ctx,
		"SELECT status, member_count FROM roster_jobs WHERE id=$1", jobID,
	).Scan(&dbStatus, &members)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", dbStatus)
	assert.Equal(t, 2, members)

	var snapshots int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM roster_snapshots WHERE job_id=$1", jobID).Scan(&snapshots))
	assert.Equal(t, 2, snapshots)

	consumerCancel()
}
