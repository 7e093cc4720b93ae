package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
	"wildfire-dashboard/internal/domain/ports/adapter"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const predictDays = 30

type PredictRequest struct {
	Country   string `json:"country" validate:"required"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type PredictResponse struct {
	Country       string              `json:"country"`
	Model         string              `json:"model"`
	Probabilities []model.Prediction  `json:"probabilities"`
	AnnualCounts  []model.AnnualCount `json:"annual_counts"`
}

// PredictUseCase scores the next days for a country with the downloaded
// model package. It runs inside the request.
type PredictUseCase interface {
	Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error)
}

var _ PredictUseCase = (*predictUC)(nil)

type predictUC struct {
	loader   adapter.ModelLoader
	path     string
	validate *validator.Validate
	log      *zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	clf  adapter.Classifier
	meta model.ModelMetadata
}

func NewPredictUseCase(loader adapter.ModelLoader, packagePath string, logger *zerolog.Logger) PredictUseCase {
	return &predictUC{loader: loader, path: packagePath, validate: validator.New(), log: logger, now: time.Now}
}

func (u *predictUC) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	start := u.now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		start, _ = time.Parse("2006-01-02", req.StartDate)
	}

	clf, meta, err := u.load()
	if err != nil {
		return nil, err
	}

	counts := meta.AnnualCounts[req.Country]
	rows := make([][]float64, predictDays)
	for d := 0; d < predictDays; d++ {
		rows[d] = features(meta.Features, start.AddDate(0, 0, d), counts)
	}
	scores, err := clf.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out := &PredictResponse{Country: req.Country, Model: meta.Name, AnnualCounts: counts}
	for d, p := range scores {
		out.Probabilities = append(out.Probabilities, model.Prediction{
			Date:            start.AddDate(0, 0, d).Format("2006-01-02"),
			FireProbability: math.Round(p*10000) / 10000,
		})
	}
	if out.AnnualCounts == nil {
		out.AnnualCounts = []model.AnnualCount{}
	}
	return out, nil
}

// load opens the package on first use and keeps it. A failed load is retried
// on the next request, so downloading the model later just works.
func (u *predictUC) load() (adapter.Classifier, model.ModelMetadata, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.clf != nil {
		return u.clf, u.meta, nil
	}
	clf, meta, err := u.loader.LoadPackage(u.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.ModelMetadata{}, fmt.Errorf("model package: %w", domain.ErrNotFound)
		}
		return nil, model.ModelMetadata{}, err
	}
	u.log.Info().Str("model", meta.Name).Str("version", meta.Version).Msg("prediction model loaded")
	u.clf, u.meta = clf, meta
	return clf, meta, nil
}

// features builds one row in the order the package lists them. Unknown
// feature names score as 0.
func features(names []string, day time.Time, counts []model.AnnualCount) []float64 {
	doy := float64(day.YearDay())
	row := make([]float64, len(names))
	for i, n := range names {
		switch n {
		case "doy_sin":
			row[i] = math.Sin(2 * math.Pi * doy / 365.25)
		case "doy_cos":
			row[i] = math.Cos(2 * math.Pi * doy / 365.25)
		case "month":
			row[i] = float64(day.Month())
		case "annual_mean":
			row[i] = annualMean(counts) / 1000
		}
	}
	return row
}

func annualMean(counts []model.AnnualCount) float64 {
	if len(counts) == 0 {
		return 0
	}
	var sum int
	for _, c := range counts {
		sum += c.Count
	}
	return float64(sum) / float64(len(counts))
}
