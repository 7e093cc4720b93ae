package repository

import "wildfire-dashboard/internal/domain/model"

// ProgressTable is the process-wide session -> progress mapping shared by job
// bodies, the cancel endpoint and progress streams. Implementations must make
// every per-session mutation atomic.
type ProgressTable interface {
	// Register creates (or adopts a pending) session at 0/"starting".
	Register(id string) error
	// Ensure returns the session, creating it at 0/"pending" when missing.
	Ensure(id string) model.Progress
	// Set records an update. It returns false when the update was dropped
	// because cancellation was requested.
	Set(id string, u model.Update) bool
	// Finish records the terminal update and status. It returns false when the
	// session was already terminal (typically cancelled).
	Finish(id string, status model.SessionStatus, u model.Update) bool
	Get(id string) (model.Progress, error)
	// Events returns events recorded after seq and a channel closed on the
	// next change to the session.
	Events(id string, after uint64) ([]model.ProgressEvent, <-chan struct{}, error)
	Remove(id string)
	RequestCancel(id string) error
	IsCancelRequested(id string) bool
}
