package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one roster reconstruction request for a club video.
type Job struct {
	ID           uuid.UUID
	ClubID       string
	UserID       string
	VideoKey     string
	ResultKey    string
	Status       JobStatus
	FrameCount   int
	MemberCount  int
	ChainCount   int
	FileSize     int64
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewJob(clubID, userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		ClubID:      clubID,
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(resultKey string, frameCount, memberCount, chainCount int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ResultKey = resultKey
	j.FrameCount = frameCount
	j.MemberCount = memberCount
	j.ChainCount = chainCount
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// ExhaustRetries makes the failure permanent regardless of remaining attempts.
func (j *Job) ExhaustRetries() {
	j.MaxAttempts = j.Attempt
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
