package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/infra/metrics"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/report"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/roster"
)

type ProcessRosterUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	analyzer  port.RosterAnalyzer
	exporter  port.RosterExporter
	zipper    port.Zipper
	publisher port.StatusPublisher
	progress  port.ProgressPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ProcessRosterConfig
	now       func() time.Time
}

type ProcessRosterConfig struct {
	TempDir          string
	MaxRetries       int
	ProgressInterval time.Duration
	KeepRowCrops     bool
}

func NewProcessRosterUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	analyzer port.RosterAnalyzer,
	exporter port.RosterExporter,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	progress port.ProgressPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessRosterConfig,
) *ProcessRosterUseCase {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	return &ProcessRosterUseCase{
		repo:      repo,
		storage:   storage,
		analyzer:  analyzer,
		exporter:  exporter,
		zipper:    zipper,
		publisher: publisher,
		progress:  progress,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// IsPermanent reports whether retrying the job cannot change the outcome.
func IsPermanent(err error) bool {
	return errors.Is(err, port.ErrVideoUnreadable) || errors.Is(err, roster.ErrNoChains)
}

// Execute handles one delivery. A nil return acks the message; an error
// asks the consumer to requeue it.
func (uc *ProcessRosterUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessRosterUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.RosterProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.JobID == uuid.Nil || msg.VideoKey == "" {
		uc.logger.Error("invalid message", zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "invalid_message: job_id and video_key are required")
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.club_id", msg.ClubID),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("club_id", msg.ClubID),
		zap.String("video_key", msg.VideoKey),
	)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	switch {
	case errors.Is(err, port.ErrJobNotFound):
		job = entity.NewJob(msg.ClubID, msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	case err != nil:
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, skipping redelivery")
		return nil
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.processRosterPipeline(ctx, job, msg, rawMsg, totalTimer, log); err != nil {
		return err
	}

	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessRosterUseCase) processRosterPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.RosterProcessingMessage,
	rawMsg []byte,
	started time.Time,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	err := uc.storage.DownloadVideo(ctxDl, msg.VideoKey, videoPath)
	spanDl.End()
	if err != nil {
		log.Error("failed to download video", zap.Error(err))
		if IsPermanent(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Analyze, with periodic progress updates
	artifactsDir := filepath.Join(workDir, "result")
	req := entity.AnalyzeRequest{VideoPath: videoPath, Progress: &entity.Progress{}}
	if uc.cfg.KeepRowCrops {
		req.CropDir = filepath.Join(artifactsDir, "crops")
	}
	stopProgress := uc.startProgress(ctx, job, msg, req.Progress, started, log)
	ctxAn, spanAn := tracer.Start(ctx, "analyze_video")
	result, err := uc.analyzer.Analyze(ctxAn, req)
	spanAn.End()
	stopProgress()
	if err != nil {
		log.Error("roster analysis failed", zap.Error(err))
		if IsPermanent(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "analyze_video: "+err.Error(), log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze_video: "+err.Error(), log)
	}
	members := result.Members()
	capturedAt := uc.now().UTC()

	// Bundle and upload
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_result")
	resultKey := fmt.Sprintf("%s/roster_%s.zip", clubKey(job), job.ID.String())
	err = uc.uploadArtifacts(ctxUp, workDir, artifactsDir, resultKey, result, capturedAt)
	spanUp.End()
	if err != nil {
		log.Error("result upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_result: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Export snapshot rows once the bundle is stored
	ctxEx, spanEx := tracer.Start(ctx, "export_roster")
	err = uc.exporter.ExportRoster(ctxEx, job, result.Chains, capturedAt)
	spanEx.End()
	if err != nil {
		log.Error("roster export failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "export_roster: "+err.Error(), log)
	}

	job.MarkCompleted(resultKey, result.Stats.FramesSampled, len(members), len(result.Chains))
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	uc.publishStatus(ctx, job, msg, statusExtras{
		members:   members,
		codeblock: report.Codeblock(members, capturedAt),
		elapsed:   time.Since(started),
	}, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", result.Stats.FramesSampled),
		zap.Int("member_count", len(members)),
		zap.Int("chain_count", len(result.Chains)),
		zap.String("result_key", resultKey),
	)
	return nil
}

// uploadArtifacts writes the roster files next to any saved row crops, zips
// them and uploads the bundle.
func (uc *ProcessRosterUseCase) uploadArtifacts(
	ctx context.Context,
	workDir, artifactsDir, resultKey string,
	result *entity.RosterResult,
	capturedAt time.Time,
) error {
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}
	if err := writeFile(filepath.Join(artifactsDir, "roster.csv"), func(f *os.File) error {
		return report.WriteCSV(f, result)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(artifactsDir, "roster.json"), func(f *os.File) error {
		return report.WriteJSON(f, result)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(artifactsDir, "codeblock.txt"), func(f *os.File) error {
		_, err := f.WriteString(report.Codeblock(result.Members(), capturedAt) + "\n")
		return err
	}); err != nil {
		return err
	}

	var files []string
	err := filepath.WalkDir(artifactsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	zipPath := filepath.Join(workDir, "roster.zip")
	size, err := uc.zipper.CreateZip(ctx, artifactsDir, files, zipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}

	zipFile, err := os.Open(zipPath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zipFile.Close()
	return uc.storage.UploadResult(ctx, resultKey, zipFile, size)
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// startProgress publishes a progress message every interval until the
// returned stop func is called. stop waits for the publisher goroutine.
func (uc *ProcessRosterUseCase) startProgress(
	ctx context.Context,
	job *entity.Job,
	msg entity.RosterProcessingMessage,
	progress *entity.Progress,
	started time.Time,
	log *zap.Logger,
) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(uc.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				data, _ := json.Marshal(entity.RosterProgressMessage{
					JobID:          job.ID,
					ChannelID:      msg.ChannelID,
					ElapsedSeconds: time.Since(started).Seconds(),
					Progress:       progress.Snapshot(),
				})
				if err := uc.progress.PublishProgress(ctx, data); err != nil && ctx.Err() == nil {
					log.Warn("failed to publish progress", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func (uc *ProcessRosterUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.RosterProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, msg, statusExtras{}, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessRosterUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.RosterProcessingMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	job.ExhaustRetries()
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, msg, statusExtras{}, log)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	err := uc.notifier.NotifyFailure(ctx, port.RosterFailure{
		UserEmail: msg.UserEmail,
		ClubID:    job.ClubID,
		JobID:     job.ID.String(),
		VideoKey:  job.VideoKey,
		Reason:    errMsg,
	})
	if err != nil {
		log.Warn("failure notification not sent", zap.Error(err))
	}
	return nil
}

type statusExtras struct {
	members   []entity.Member
	codeblock string
	elapsed   time.Duration
}

func (uc *ProcessRosterUseCase) publishStatus(ctx context.Context, job *entity.Job, msg entity.RosterProcessingMessage, extra statusExtras, log *zap.Logger) {
	statusMsg := entity.RosterStatusMessage{
		JobID:          job.ID,
		ClubID:         job.ClubID,
		ChannelID:      msg.ChannelID,
		UserID:         job.UserID,
		Status:         job.Status,
		VideoKey:       job.VideoKey,
		ResultKey:      job.ResultKey,
		FrameCount:     job.FrameCount,
		ChainCount:     job.ChainCount,
		Members:        extra.members,
		Codeblock:      extra.codeblock,
		ElapsedSeconds: extra.elapsed.Seconds(),
		ErrorMessage:   job.ErrorMessage,
		Attempt:        job.Attempt,
		MaxAttempts:    job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

func clubKey(job *entity.Job) string {
	if job.ClubID != "" {
		return job.ClubID
	}
	return job.UserID
}
