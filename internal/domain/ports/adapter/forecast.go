package adapter

import "context"

// FittedModel produces the h-step-ahead forecast (h >= 1) with a confidence band.
type FittedModel interface {
	Predict(h int) (mean, lower, upper float64)
}

// Forecaster fits a seasonal model to an evenly spaced series.
type Forecaster interface {
	Fit(ctx context.Context, series []float64, season int) (FittedModel, error)
}
