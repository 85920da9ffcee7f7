package port

import (
	"context"
	"errors"
	"time"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}

// RosterExporter appends a timestamped snapshot row for every voted member.
// Exporting a job again replaces the rows of its previous export.
type RosterExporter interface {
	ExportRoster(ctx context.Context, job *entity.Job, chains [][]entity.Member, capturedAt time.Time) error
}
