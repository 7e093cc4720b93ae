package usecase

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"wildfire-dashboard/internal/config"
	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// jobBody is one executable job. It reports through tr and returns the
// terminal result; any error is terminal for that job only.
type jobBody func(ctx context.Context, tr *Tracker) (*model.JobResult, error)

// CatalogDeps are the collaborators job bodies call into. Storage may be nil
// when no object store is configured; download jobs then fail at run time.
type CatalogDeps struct {
	Storage    adapter.ObjectStorage
	Columnar   adapter.ColumnarStore
	Tables     adapter.TableStore
	Forecaster adapter.Forecaster
	Data       config.DataConfig
	Objects    config.StorageConfig
}

// Catalog validates job requests and binds them to job bodies.
type Catalog struct {
	deps     CatalogDeps
	validate *validator.Validate
	log      *zerolog.Logger
}

func NewCatalog(deps CatalogDeps, logger *zerolog.Logger) *Catalog {
	return &Catalog{deps: deps, validate: validator.New(), log: logger}
}

// Prepare checks the request parameters and returns the body to run. It never
// touches the progress table.
func (c *Catalog) Prepare(req model.JobRequest) (jobBody, error) {
	switch req.Kind {
	case model.JobDownload:
		p := model.DownloadParams{}
		if req.Download != nil {
			p = *req.Download
		}
		if p.ObjectKey == "" {
			p.ObjectKey = c.deps.Objects.DatasetKey
		}
		if p.LocalPath == "" {
			p.LocalPath = c.deps.Data.CombinedFile
		}
		if !relLocator(p.LocalPath) {
			return nil, fmt.Errorf("%w: local_path must stay under the data root", domain.ErrInvalidArgument)
		}
		p.LocalPath = c.deps.Data.Path(p.LocalPath)
		return c.download(p), nil

	case model.JobDownloadAll:
		return c.downloadAll(), nil

	case model.JobConvert:
		p := model.ConvertParams{}
		if req.Convert != nil {
			p = *req.Convert
		}
		if p.StartYear == 0 {
			p.StartYear = c.deps.Data.HistoryStart
		}
		if p.EndYear == 0 {
			p.EndYear = c.deps.Data.HistoryEnd
		}
		if err := c.check(&p); err != nil {
			return nil, err
		}
		return c.convert(p), nil

	case model.JobRepartition:
		p := model.RepartitionParams{}
		if req.Repartition != nil {
			p = *req.Repartition
		}
		if p.Input == "" {
			p.Input = c.deps.Data.CombinedFile
		}
		if p.Output == "" {
			p.Output = c.deps.Data.ParquetDir
		}
		if p.Key == "" {
			p.Key = "year"
		}
		if !relLocator(p.Input) || !relLocator(p.Output) {
			return nil, fmt.Errorf("%w: input and output must stay under the data root", domain.ErrInvalidArgument)
		}
		if err := c.check(&p); err != nil {
			return nil, err
		}
		return c.repartition(p), nil

	case model.JobAnalyze:
		if req.Analyze == nil {
			return nil, fmt.Errorf("%w: analyze filters are required", domain.ErrInvalidArgument)
		}
		f := *req.Analyze
		if err := c.check(&f); err != nil {
			return nil, err
		}
		return c.analyze(f), nil

	case model.JobForecast:
		p := model.ForecastParams{}
		if req.Forecast != nil {
			p = *req.Forecast
		}
		if err := c.check(&p); err != nil {
			return nil, err
		}
		if p.Periods == 0 {
			p.Periods = c.deps.Data.DefaultPeriod
		}
		return c.forecast(p), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownJobKind, req.Kind)
}

func (c *Catalog) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// partition is the locator of one per-key parquet artifact.
func (c *Catalog) partition(key string) string {
	return path.Join(c.deps.Data.ParquetDir, key+".parquet")
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// relLocator accepts relative paths that do not climb out of their root.
func relLocator(p string) bool {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return false
	}
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return false
		}
	}
	return true
}
