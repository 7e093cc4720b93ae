package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

// convert projects the raw per-country exports of each year to the display
// columns, then splits the combined dataset into per-year partitions.
// Converting covers 0-50%, splitting 50-100%.
func (c *Catalog) convert(p model.ConvertParams) jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		d := c.deps.Data
		n := p.EndYear - p.StartYear + 1
		converted := 0

		for i := 0; i < n; i++ {
			year := p.StartYear + i
			if err := tr.Checkpoint(ctx); err != nil {
				return nil, err
			}
			files, err := c.convertYear(ctx, tr, year)
			if err != nil {
				return nil, err
			}
			converted += files
			tr.Report(ctx, percent(i+1, n)/2, model.PhaseConverting, fmt.Sprintf("year %d: %d files", year, files))
		}

		var parts []string
		if c.deps.Columnar.Exists(d.CombinedFile) {
			var err error
			parts, err = c.split(ctx, tr, d.CombinedFile, d.ParquetDir, "year", 50, 100)
			if err != nil {
				return nil, err
			}
		} else {
			tr.Step(ctx, model.PhaseSplitting, "combined dataset missing, partitions left as is")
		}

		return &model.JobResult{
			Data:  map[string]any{"files_converted": converted, "partitions": parts},
			Phase: model.PhaseDone,
		}, nil
	}
}

func (c *Catalog) convertYear(ctx context.Context, tr *Tracker, year int) (int, error) {
	d := c.deps.Data
	y := strconv.Itoa(year)
	dir := d.Path(d.ModisDir, y)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	prefix := "modis_" + y + "_"
	n := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		if tr.Cancelled(ctx) {
			return n, domain.ErrCancelled
		}
		country := strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".csv"), "_", " ")

		t, err := c.deps.Tables.ReadTable(filepath.Join(dir, name))
		if err != nil {
			return n, err
		}
		if err := c.deps.Tables.WriteTable(d.Path(d.ProcessedDir, y, country+".csv"), t.Project(model.DisplayColumns)); err != nil {
			return n, err
		}
		tr.Step(ctx, model.PhaseConverting, y+"/"+country)
		n++
	}
	return n, nil
}
