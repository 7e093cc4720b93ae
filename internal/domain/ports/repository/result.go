package repository

import (
	"context"

	"wildfire-dashboard/internal/domain/model"
)

// ResultStore keeps terminal job payloads keyed by session id. Put is write-once.
type ResultStore interface {
	Put(ctx context.Context, res *model.JobResult) error
	Get(ctx context.Context, sessionID string) (*model.JobResult, error)
	Delete(ctx context.Context, sessionID string) error
	// Sweep evicts expired results and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
