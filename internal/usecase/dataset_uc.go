package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DetailQuery locates one detection in the raw export of a country.
type DetailQuery struct {
	Year      string `json:"year" validate:"required,numeric,len=4"`
	Country   string `json:"country" validate:"required"`
	Latitude  string `json:"latitude" validate:"required"`
	Longitude string `json:"longitude" validate:"required"`
	AcqDate   string `json:"acq_date" validate:"required"`
	AcqTime   string `json:"acq_time" validate:"required"`
}

// DataStatus reports which local artifacts are present.
type DataStatus struct {
	CombinedExists bool `json:"combined_exists"`
	ModelExists    bool `json:"model_exists"`
	ModisExists    bool `json:"modis_exists"`
}

// DatasetUseCase serves the stateless tabular routes of the map view.
type DatasetUseCase interface {
	Countries(ctx context.Context, year string) ([]string, error)
	Data(ctx context.Context, year, country string) ([]map[string]string, error)
	Detail(ctx context.Context, q DetailQuery) ([]map[string]string, error)
	CheckData(ctx context.Context) DataStatus
	DataSetup() bool
	SetDataSetup(v bool)
}

var _ DatasetUseCase = (*datasetUC)(nil)

type datasetUC struct {
	tables   adapter.TableStore
	data     config.DataConfig
	validate *validator.Validate
	setup    atomic.Bool
	log      *zerolog.Logger
}

func NewDatasetUseCase(tables adapter.TableStore, data config.DataConfig, logger *zerolog.Logger) DatasetUseCase {
	return &datasetUC{tables: tables, data: data, validate: validator.New(), log: logger}
}

func (u *datasetUC) Countries(ctx context.Context, year string) ([]string, error) {
	if !safeName(year) {
		return nil, domain.ErrInvalidArgument
	}
	entries, err := os.ReadDir(u.data.Path(u.data.ProcessedDir, year))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("year %s: %w", year, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".csv" {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(out)
	return out, nil
}

func (u *datasetUC) Data(ctx context.Context, year, country string) ([]map[string]string, error) {
	if !safeName(year) || !safeName(country) {
		return nil, domain.ErrInvalidArgument
	}
	t, err := u.tables.ReadTable(u.data.Path(u.data.ProcessedDir, year, country+".csv"))
	if err != nil {
		return nil, err
	}
	return t.Project(model.DisplayColumns).Records(), nil
}

// Detail matches on the string form of the four key columns, as the map
// sends them back.
func (u *datasetUC) Detail(ctx context.Context, q DetailQuery) ([]map[string]string, error) {
	if err := u.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if !safeName(q.Country) {
		return nil, domain.ErrInvalidArgument
	}

	t, err := u.rawTable(q.Year, q.Country)
	if err != nil {
		return nil, err
	}
	keys := map[string]string{
		"latitude":  q.Latitude,
		"longitude": q.Longitude,
		"acq_date":  q.AcqDate,
		"acq_time":  q.AcqTime,
	}
	idx := map[int]string{}
	for col, want := range keys {
		i := t.Index(col)
		if i < 0 {
			return []map[string]string{}, nil
		}
		idx[i] = want
	}
	match := &model.Table{Header: t.Header}
	for _, row := range t.Rows {
		ok := true
		for i, want := range idx {
			if i >= len(row) || row[i] != want {
				ok = false
				break
			}
		}
		if ok {
			match.Rows = append(match.Rows, row)
		}
	}
	return match.Records(), nil
}

// rawTable opens modis/{Y}/modis_{Y}_{C}.csv. Raw exports keep underscores
// where processed names have spaces, so both spellings are tried.
func (u *datasetUC) rawTable(year, country string) (*model.Table, error) {
	var err error
	for _, c := range []string{country, strings.ReplaceAll(country, " ", "_")} {
		var t *model.Table
		t, err = u.tables.ReadTable(u.data.Path(u.data.ModisDir, year, "modis_"+year+"_"+c+".csv"))
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, err
}

func (u *datasetUC) CheckData(ctx context.Context) DataStatus {
	st := DataStatus{
		CombinedExists: fileExists(u.data.Path(u.data.CombinedFile)),
		ModelExists:    fileExists(u.data.Path(u.data.ModelFile)),
	}
	if fi, err := os.Stat(u.data.Path(u.data.ModisDir)); err == nil && fi.IsDir() {
		st.ModisExists = true
	}
	return st
}

func (u *datasetUC) DataSetup() bool { return u.setup.Load() }

func (u *datasetUC) SetDataSetup(v bool) {
	u.setup.Store(v)
	u.log.Info().Bool("data_setup", v).Msg("data setup flag changed")
}

// safeName rejects path separators and traversal in URL-provided names.
func safeName(s string) bool {
	return s != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}
