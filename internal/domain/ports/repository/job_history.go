package repository

import (
	"context"

	"wildfire-dashboard/internal/domain/model"
)

type JobHistoryRepository interface {
	RecordStart(ctx context.Context, run *model.JobRun) error
	RecordFinish(ctx context.Context, run *model.JobRun) error
	ListRecent(ctx context.Context, limit int) ([]*model.JobRun, error)
}
