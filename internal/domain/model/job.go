package model

import (
	"strings"
	"time"
)

// JobKind names an entry in the job catalog.
type JobKind string

const (
	JobDownload    JobKind = "download"
	JobDownloadAll JobKind = "download_all"
	JobConvert     JobKind = "convert"
	JobRepartition JobKind = "repartition"
	JobAnalyze     JobKind = "analyze"
	JobForecast    JobKind = "forecast"
)

// ParseJobKind normalizes URL spellings ("download-all", "Analyze").
func ParseJobKind(s string) JobKind {
	return JobKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
}

// DownloadParams selects one object to fetch. Empty fields fall back to the
// configured dataset object.
type DownloadParams struct {
	ObjectKey string `json:"object_key"`
	LocalPath string `json:"local_path"`
}

// ConvertParams is the year range of raw CSV exports to project.
type ConvertParams struct {
	StartYear int `json:"start_year" validate:"omitempty,gte=1900"`
	EndYear   int `json:"end_year" validate:"omitempty,gtefield=StartYear"`
}

// RepartitionParams splits one columnar input into one artifact per key value.
type RepartitionParams struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Key    string `json:"key" validate:"omitempty,oneof=year country daynight type"`
}

// AnalyzeFilters narrows the fire records aggregated by an analyze job.
type AnalyzeFilters struct {
	StartYear     int      `json:"start_year" validate:"required,gte=1900"`
	EndYear       int      `json:"end_year" validate:"required,gtefield=StartYear"`
	Countries     []string `json:"countries"`
	DayNight      string   `json:"daynight" validate:"omitempty,oneof=D N"`
	FireTypes     []string `json:"fire_types"`
	MinConfidence int      `json:"min_confidence" validate:"gte=0,lte=100"`
}

// ForecastParams drives a forecast job over the historical year range.
type ForecastParams struct {
	Country string `json:"country"`
	Periods int    `json:"periods" validate:"gte=0,lte=120"`
}

// JobRequest is the input to JobRunner.Start. Exactly the params matching Kind
// are read.
type JobRequest struct {
	Kind        JobKind
	SessionID   string
	Download    *DownloadParams
	Convert     *ConvertParams
	Repartition *RepartitionParams
	Analyze     *AnalyzeFilters
	Forecast    *ForecastParams
}

// JobResult is the terminal payload of a successful job. Phase and Message
// label the final progress event published alongside it.
type JobResult struct {
	SessionID string         `json:"session_id"`
	Kind      JobKind        `json:"kind"`
	Data      any            `json:"data,omitempty"`
	Stats     map[string]any `json:"stats,omitempty"`
	Phase     string         `json:"-"`
	Message   string         `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// JobRun is the history record of one job execution.
type JobRun struct {
	SessionID  string        `json:"session_id"`
	Kind       JobKind       `json:"kind"`
	Status     SessionStatus `json:"status"`
	LastError  string        `json:"last_error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
