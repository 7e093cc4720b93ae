package postgres

import (
	"context"
	"fmt"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/repository"
	"wildfire-dashboard/internal/infra/metrics"

	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.JobHistoryRepository = (*jobHistoryRepo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS job_runs (
  session_id  TEXT PRIMARY KEY,
  kind        TEXT NOT NULL,
  status      TEXT NOT NULL,
  last_error  TEXT NOT NULL DEFAULT '',
  started_at  TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS job_runs_started_at_idx ON job_runs (started_at DESC);`

type jobHistoryRepo struct {
	pool *pgxpool.Pool
}

func NewJobHistoryRepo(pool *pgxpool.Pool) *jobHistoryRepo {
	return &jobHistoryRepo{pool: pool}
}

// Migrate creates the job_runs table when missing.
func (r *jobHistoryRepo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate job_runs: %w", err)
	}
	return nil
}

func (r *jobHistoryRepo) RecordStart(ctx context.Context, run *model.JobRun) error {
	if run == nil || run.SessionID == "" {
		return domain.ErrInvalidArgument
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	const q = `
INSERT INTO job_runs (session_id, kind, status, last_error, started_at)
VALUES ($1, $2, $3, '', $4)
ON CONFLICT (session_id) DO UPDATE SET
  kind = EXCLUDED.kind,
  status = EXCLUDED.status,
  started_at = EXCLUDED.started_at,
  finished_at = NULL;`
	_, err := r.pool.Exec(ctx, q, run.SessionID, string(run.Kind), string(run.Status), run.StartedAt)
	return err
}

func (r *jobHistoryRepo) RecordFinish(ctx context.Context, run *model.JobRun) error {
	if run == nil || run.SessionID == "" {
		return domain.ErrInvalidArgument
	}
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	const q = `
UPDATE job_runs SET status = $2, last_error = $3, finished_at = $4
WHERE session_id = $1;`
	tag, err := r.pool.Exec(ctx, q, run.SessionID, string(run.Status), run.LastError, finished)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobHistoryRepo) ListRecent(ctx context.Context, limit int) ([]*model.JobRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
SELECT session_id, kind, status, last_error, started_at, finished_at
FROM job_runs
ORDER BY started_at DESC
LIMIT $1;`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.JobRun
	for rows.Next() {
		var (
			run          model.JobRun
			kind, status string
		)
		if err := rows.Scan(&run.SessionID, &kind, &status, &run.LastError, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		run.Kind = model.JobKind(kind)
		run.Status = model.SessionStatus(status)
		out = append(out, &run)
	}
	return out, rows.Err()
}

// ReportPoolStats publishes the pool gauges; the janitor calls it periodically.
func (r *jobHistoryRepo) ReportPoolStats() {
	s := r.pool.Stat()
	metrics.SetHistoryPool(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
}
