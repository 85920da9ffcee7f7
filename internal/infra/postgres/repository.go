package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/port"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO roster_jobs (
			id, club_id, user_id, video_key, result_key, status,
			frame_count, member_count, chain_count, file_size,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.ClubID, job.UserID, job.VideoKey, job.ResultKey, string(job.Status),
		job.FrameCount, job.MemberCount, job.ChainCount, job.FileSize,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE roster_jobs SET
			status=$2, result_key=$3, frame_count=$4, member_count=$5,
			chain_count=$6, attempt=$7, max_attempts=$8, error_message=$9,
			updated_at=$10, completed_at=$11
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ResultKey, job.FrameCount, job.MemberCount,
		job.ChainCount, job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update job %s: %w", job.ID, port.ErrJobNotFound)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, club_id, user_id, video_key, result_key, status,
			frame_count, member_count, chain_count, file_size,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM roster_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.ClubID, &job.UserID, &job.VideoKey, &job.ResultKey, &status,
		&job.FrameCount, &job.MemberCount, &job.ChainCount, &job.FileSize,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find job %s: %w", id, port.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
