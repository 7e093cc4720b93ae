package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Job errors
	ErrUnknownJobKind = errors.New("unknown job kind")
	ErrCancelled      = errors.New("job cancelled")
	ErrQueueFull      = errors.New("job queue full")
	ErrResultExists   = errors.New("result already stored for session")
	ErrNotReady       = errors.New("result not available yet")
)
