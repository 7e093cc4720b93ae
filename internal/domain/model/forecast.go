package model

// ForecastPoint is one future period with its confidence band.
type ForecastPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Prediction is one day of classifier output.
type Prediction struct {
	Date            string  `json:"date"`
	FireProbability float64 `json:"fire_probability"`
}

// AnnualCount is the yearly fire total reported next to predictions.
type AnnualCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// ModelMetadata describes a loaded prediction package.
type ModelMetadata struct {
	Name         string                   `json:"name"`
	Version      string                   `json:"version"`
	Features     []string                 `json:"features"`
	TrainedAt    string                   `json:"trained_at"`
	AnnualCounts map[string][]AnnualCount `json:"annual_counts"`
}
