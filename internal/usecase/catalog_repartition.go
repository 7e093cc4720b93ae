package usecase

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

func (c *Catalog) repartition(p model.RepartitionParams) jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		keys, err := c.split(ctx, tr, p.Input, p.Output, p.Key, 0, 100)
		if err != nil {
			return nil, err
		}
		return &model.JobResult{
			Data:  map[string]any{"key": p.Key, "output": p.Output, "partitions": keys},
			Phase: model.PhaseDone,
		}, nil
	}
}

// split reads input whole, groups rows by key and writes one artifact per
// distinct value in sorted order. "splitting" progress runs from lo to hi.
func (c *Catalog) split(ctx context.Context, tr *Tracker, input, output, key string, lo, hi int) ([]string, error) {
	if tr.Cancelled(ctx) {
		return nil, domain.ErrCancelled
	}
	tr.Step(ctx, model.PhaseReading, input)
	rows, err := c.deps.Columnar.ReadPartition(ctx, input, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}

	groups := make(map[string][]model.FireRecord)
	for _, r := range rows {
		k := partitionName(r.Column(key))
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := len(keys)
	for i, k := range keys {
		if tr.Cancelled(ctx) {
			return nil, domain.ErrCancelled
		}
		if err := c.deps.Columnar.WritePartition(ctx, groups[k], path.Join(output, k+".parquet")); err != nil {
			return nil, fmt.Errorf("write partition %s: %w", k, err)
		}
		tr.Report(ctx, lo+percent(i+1, n)*(hi-lo)/100, model.PhaseSplitting, k)
		if err := tr.Checkpoint(ctx); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func partitionName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(v)
}
