package model

import "time"

// Indeterminate marks a progress update that carries only a phase label.
const Indeterminate = -1

// Phase tags used by the job catalog. Phases are free-form; these are the ones
// clients key off.
const (
	PhasePending          = "pending"
	PhaseStarting         = "starting"
	PhaseDownloading      = "downloading"
	PhaseDownloadSkip     = "download skip"
	PhaseDownloadComplete = "download complete"
	PhaseAllComplete      = "all complete"
	PhaseConverting       = "converting"
	PhaseReading          = "reading"
	PhaseSplitting        = "splitting"
	PhaseLoading          = "loading"
	PhaseAggregating      = "aggregating"
	PhaseForecasting      = "forecasting"
	PhaseThrottling       = "throttling"
	PhaseDone             = "done"
	PhaseError            = "error"
	PhaseCancelled        = "cancelled"
)

// SessionStatus disambiguates the terminal meaning of a 0 progress value.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionSucceeded SessionStatus = "succeeded"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further job updates are expected.
func (s SessionStatus) Terminal() bool {
	return s == SessionSucceeded || s == SessionFailed || s == SessionCancelled
}

// Update is a single progress report from a job body.
type Update struct {
	Value   int // 0..100 or Indeterminate
	Phase   string
	Message string
}

// ProgressEvent is an Update as recorded by the progress table. Status is set
// only on the event that ended the session.
type ProgressEvent struct {
	Seq     uint64
	Value   int
	Phase   string
	Message string
	Status  SessionStatus
	At      time.Time
}

// Indeterminate reports whether the event carries no percentage.
func (e ProgressEvent) Indeterminate() bool { return e.Value < 0 }

// Progress is the current state of one session.
type Progress struct {
	SessionID       string
	Value           int // last percentage, never Indeterminate
	Phase           string
	Message         string
	Status          SessionStatus
	CancelRequested bool
	UpdatedAt       time.Time
	LastSeq         uint64
}

// Stale reports whether the session saw no update within d.
func (p Progress) Stale(now time.Time, d time.Duration) bool {
	return now.Sub(p.UpdatedAt) > d
}
