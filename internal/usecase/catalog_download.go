package usecase

import (
	"context"
	"errors"
	"fmt"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

var errNoStorage = errors.New("object storage is not configured")

func (c *Catalog) download(p model.DownloadParams) jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		skipped, err := c.fetch(ctx, tr, p.ObjectKey, p.LocalPath, model.PhaseDownloading)
		if err != nil {
			return nil, err
		}
		res := &model.JobResult{
			Data:  map[string]any{"object_key": p.ObjectKey, "path": p.LocalPath, "skipped": skipped},
			Phase: model.PhaseDownloadComplete,
		}
		if skipped {
			res.Phase = model.PhaseDownloadSkip
			res.Message = "file already exists"
		}
		return res, nil
	}
}

// downloadAll fetches the dataset then the model package. Each transfer keeps
// its own 0-100 range under its own phase tag.
func (c *Catalog) downloadAll() jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		items := []struct {
			label, key, local string
		}{
			{"dataset", c.deps.Objects.DatasetKey, c.deps.Data.Path(c.deps.Data.CombinedFile)},
			{"model", c.deps.Objects.ModelKey, c.deps.Data.Path(c.deps.Data.ModelFile)},
		}
		out := make(map[string]any, len(items))
		for _, it := range items {
			phase := model.PhaseDownloading + " " + it.label
			skipped, err := c.fetch(ctx, tr, it.key, it.local, phase)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", it.label, err)
			}
			if skipped {
				tr.Step(ctx, model.PhaseDownloadSkip, it.label+" already exists")
				out[it.label] = "skipped"
			} else {
				out[it.label] = "downloaded"
			}
		}
		return &model.JobResult{Data: out, Phase: model.PhaseAllComplete}, nil
	}
}

// fetch downloads key to local unless local already exists, in which case
// storage is never contacted.
func (c *Catalog) fetch(ctx context.Context, tr *Tracker, key, local, phase string) (bool, error) {
	if tr.Cancelled(ctx) {
		return false, domain.ErrCancelled
	}
	if fileExists(local) {
		return true, nil
	}
	if c.deps.Storage == nil {
		return false, errNoStorage
	}

	total, err := c.deps.Storage.HeadSize(ctx, key)
	if err != nil {
		return false, err
	}
	tr.Report(ctx, 0, phase, key)
	c.log.Debug().Str("key", key).Int64("bytes", total).Msg("download started")

	counter := newByteCounter(total, func(pct int) {
		tr.Report(ctx, pct, phase, "")
	})
	if err := c.deps.Storage.Download(ctx, key, local, counter); err != nil {
		if tr.Cancelled(ctx) {
			return false, domain.ErrCancelled
		}
		return false, err
	}
	if tr.Cancelled(ctx) {
		return false, domain.ErrCancelled
	}
	return false, nil
}
