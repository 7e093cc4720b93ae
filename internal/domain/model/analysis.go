package model

type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

type DayNightCount struct {
	Month string `json:"month"`
	Day   int    `json:"day"`
	Night int    `json:"night"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// AnalysisData is the payload of an analyze job.
type AnalysisData struct {
	Monthly         []MonthlyCount  `json:"monthly"`
	DayNightMonthly []DayNightCount `json:"day_night_monthly"`
	TopCountries    []CountryCount  `json:"top_countries"`
	SelectionInfo   SelectionInfo   `json:"selection_info"`
}

// SelectionInfo echoes the effective filters.
type SelectionInfo struct {
	StartYear     int      `json:"start_year"`
	EndYear       int      `json:"end_year"`
	Countries     []string `json:"countries"`
	DayNight      string   `json:"daynight,omitempty"`
	FireTypes     []string `json:"fire_types"`
	MinConfidence int      `json:"min_confidence"`
	YearsLoaded   int      `json:"years_loaded"`
}

// ForecastData is the payload of a forecast job.
type ForecastData struct {
	Country  string          `json:"country,omitempty"`
	History  []MonthlyCount  `json:"history"`
	Forecast []ForecastPoint `json:"forecast"`
}
