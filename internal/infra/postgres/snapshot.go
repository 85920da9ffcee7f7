package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JohnDoeAntler/uma-club-helper-bot/internal/domain/entity"
)

var snapshotColumns = []string{
	"job_id", "club_id", "chain_index", "position",
	"name", "role", "total_fans", "last_login", "captured_at",
}

// SnapshotRepository appends one row per reconstructed member, building a
// fan count history per club. Exporting the same job again replaces its
// rows, so a redelivered message does not duplicate the snapshot.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

func (r *SnapshotRepository) ExportRoster(ctx context.Context, job *entity.Job, chains [][]entity.Member, capturedAt time.Time) error {
	var rows [][]any
	for c, chain := range chains {
		for p, m := range chain {
			rows = append(rows, []any{
				job.ID, job.ClubID, c, p,
				m.Name, m.Role, m.TotalFans, m.LastLogin, capturedAt.UTC(),
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin roster snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM roster_snapshots WHERE job_id = $1`, job.ID); err != nil {
		return fmt.Errorf("clear roster snapshot: %w", err)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"roster_snapshots"}, snapshotColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy roster snapshot: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy roster snapshot: wrote %d of %d rows", n, len(rows))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit roster snapshot: %w", err)
	}
	return nil
}
