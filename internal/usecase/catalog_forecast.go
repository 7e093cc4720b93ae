package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wildfire-dashboard/internal/domain"
	"wildfire-dashboard/internal/domain/model"
)

// forecast loads one year of history per step ("loading") then predicts one
// period per step ("forecasting"); both phases share one running percentage
// over history years + periods.
func (c *Catalog) forecast(p model.ForecastParams) jobBody {
	return func(ctx context.Context, tr *Tracker) (*model.JobResult, error) {
		years := c.deps.Data.HistoryYears()
		total := len(years) + p.Periods

		var filter model.Filter
		if p.Country != "" {
			filter = model.Filter{"country": {p.Country}}
		}

		series := make([]float64, 0, len(years)*12)
		history := make([]model.MonthlyCount, 0, len(years)*12)
		for i, year := range years {
			if err := tr.Checkpoint(ctx); err != nil {
				return nil, err
			}
			counts, err := c.monthlyCounts(ctx, year, filter)
			if err != nil {
				return nil, err
			}
			for m, n := range counts {
				series = append(series, float64(n))
				history = append(history, model.MonthlyCount{Month: fmt.Sprintf("%d-%02d", year, m+1), Count: n})
			}
			tr.Report(ctx, percent(i+1, total), model.PhaseLoading, strconv.Itoa(year))
		}

		if tr.Cancelled(ctx) {
			return nil, domain.ErrCancelled
		}
		fitted, err := c.deps.Forecaster.Fit(ctx, series, 12)
		if err != nil {
			return nil, fmt.Errorf("fit: %w", err)
		}

		start := time.Date(years[len(years)-1]+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		points := make([]model.ForecastPoint, 0, p.Periods)
		for h := 1; h <= p.Periods; h++ {
			if err := tr.Checkpoint(ctx); err != nil {
				return nil, err
			}
			mean, lower, upper := fitted.Predict(h)
			date := start.AddDate(0, h-1, 0).Format("2006-01")
			points = append(points, model.ForecastPoint{Date: date, Value: mean, Lower: lower, Upper: upper})
			tr.Report(ctx, percent(len(years)+h, total), model.PhaseForecasting, date)
		}

		return &model.JobResult{
			Data:  model.ForecastData{Country: p.Country, History: history, Forecast: points},
			Phase: model.PhaseDone,
		}, nil
	}
}

// monthlyCounts buckets one year's fires by month. A missing partition counts
// as a year without detections.
func (c *Catalog) monthlyCounts(ctx context.Context, year int, filter model.Filter) ([12]int, error) {
	var out [12]int
	rows, err := c.deps.Columnar.ReadPartition(ctx, c.partition(strconv.Itoa(year)), []string{"acq_date", "country"}, filter)
	if errors.Is(err, domain.ErrNotFound) {
		c.log.Debug().Int("year", year).Msg("no partition; counting as zero")
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load %d: %w", year, err)
	}
	for _, r := range rows {
		if len(r.AcqDate) < 7 {
			continue
		}
		m, err := strconv.Atoi(r.AcqDate[5:7])
		if err != nil || m < 1 || m > 12 {
			continue
		}
		out[m-1]++
	}
	return out, nil
}
