package forecast

import (
	"context"
	"errors"
	"math"

	"wildfire-dashboard/internal/domain/ports/adapter"
)

var _ adapter.Forecaster = (*HoltWinters)(nil)

// HoltWinters fits additive triple exponential smoothing. Series shorter than
// two seasons fall back to Holt's linear trend.
type HoltWinters struct {
	Alpha, Beta, Gamma float64
}

func NewHoltWinters() *HoltWinters {
	return &HoltWinters{Alpha: 0.3, Beta: 0.05, Gamma: 0.2}
}

type fitted struct {
	level, trend float64
	seasonal     []float64
	n            int
	sigma        float64
}

func (hw *HoltWinters) Fit(ctx context.Context, series []float64, season int) (adapter.FittedModel, error) {
	if len(series) < 2 {
		return nil, errors.New("forecast: need at least two observations")
	}
	if season < 2 || len(series) < 2*season {
		season = 1
	}

	f := &fitted{n: len(series), seasonal: make([]float64, season)}
	if season > 1 {
		first, second := mean(series[:season]), mean(series[season:2*season])
		f.level = first
		f.trend = (second - first) / float64(season)
		for i := 0; i < season; i++ {
			f.seasonal[i] = series[i] - first
		}
	} else {
		f.level = series[0]
		f.trend = series[1] - series[0]
	}

	// the linear fallback is seeded from the first point
	start := 0
	if season == 1 {
		start = 1
	}
	var sse float64
	for t := start; t < len(series); t++ {
		y := series[t]
		if t%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		i := t % season
		s := f.seasonal[i]
		if season == 1 {
			s = 0
		}
		pred := f.level + f.trend + s
		if t > 0 {
			sse += (y - pred) * (y - pred)
		}
		prevLevel := f.level
		f.level = hw.Alpha*(y-s) + (1-hw.Alpha)*(f.level+f.trend)
		f.trend = hw.Beta*(f.level-prevLevel) + (1-hw.Beta)*f.trend
		if season > 1 {
			f.seasonal[i] = hw.Gamma*(y-f.level) + (1-hw.Gamma)*s
		}
	}
	f.sigma = math.Sqrt(sse / float64(len(series)-1))
	return f, nil
}

// Predict returns the h-step forecast and its 95% band. Fire counts are never
// negative, so both the mean and the lower bound are floored at 0.
func (f *fitted) Predict(h int) (float64, float64, float64) {
	if h < 1 {
		h = 1
	}
	s := 0.0
	if m := len(f.seasonal); m > 1 {
		s = f.seasonal[(f.n+h-1)%m]
	}
	m := f.level + float64(h)*f.trend + s
	band := 1.96 * f.sigma * math.Sqrt(float64(h))
	return math.Max(m, 0), math.Max(m-band, 0), math.Max(m+band, 0)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
