package columnar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/parquet-go/parquet-go"
)

var _ adapter.ColumnarStore = (*ParquetStore)(nil)

// ParquetStore keeps one parquet file per partition under root.
type ParquetStore struct {
	root string
}

func NewParquetStore(root string) *ParquetStore {
	return &ParquetStore{root: root}
}

func (s *ParquetStore) path(locator string) string {
	return filepath.Join(s.root, filepath.FromSlash(locator))
}

func (s *ParquetStore) Exists(locator string) bool {
	_, err := os.Stat(s.path(locator))
	return err == nil
}

func (s *ParquetStore) ReadPartition(ctx context.Context, locator string, columns []string, filter model.Filter) ([]model.FireRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := s.path(locator)
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("partition %s: %w", locator, domain.ErrNotFound)
	}
	rows, err := parquet.ReadFile[model.FireRecord](p)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", locator, err)
	}

	out := rows[:0]
	for _, r := range rows {
		if filter.Match(r) {
			out = append(out, project(r, columns))
		}
	}
	return out, nil
}

func (s *ParquetStore) WritePartition(ctx context.Context, rows []model.FireRecord, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(locator)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}
	tmp := p + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write partition %s: %w", locator, err)
	}
	return os.Rename(tmp, p)
}

// project zeroes every field not named in columns. nil keeps the whole row.
func project(r model.FireRecord, columns []string) model.FireRecord {
	if columns == nil {
		return r
	}
	var out model.FireRecord
	for _, c := range columns {
		switch c {
		case "latitude":
			out.Latitude = r.Latitude
		case "longitude":
			out.Longitude = r.Longitude
		case "brightness":
			out.Brightness = r.Brightness
		case "scan":
			out.Scan = r.Scan
		case "track":
			out.Track = r.Track
		case "acq_date":
			out.AcqDate = r.AcqDate
		case "acq_time":
			out.AcqTime = r.AcqTime
		case "satellite":
			out.Satellite = r.Satellite
		case "instrument":
			out.Instrument = r.Instrument
		case "confidence":
			out.Confidence = r.Confidence
		case "version":
			out.Version = r.Version
		case "bright_t31":
			out.BrightT31 = r.BrightT31
		case "frp":
			out.FRP = r.FRP
		case "daynight":
			out.DayNight = r.DayNight
		case "type":
			out.Type = r.Type
		case "country":
			out.Country = r.Country
		case "year":
			out.Year = r.Year
		}
	}
	return out
}
