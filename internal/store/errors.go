package store

import "errors"

var (
	// ErrDuplicateID is returned by Enqueue when id already exists (I4).
	ErrDuplicateID = errors.New("duplicate job id")
	// ErrLostLock is returned when a caller no longer holds a job's lease.
	ErrLostLock = errors.New("lost lock")
	// ErrNotDead is returned by DlqRetry on a job that isn't in the dead state.
	ErrNotDead = errors.New("job is not dead")
	// ErrNotFound is returned by Get when no job with that id exists.
	ErrNotFound = errors.New("job not found")
	// ErrAlreadyRunning is returned by Supervisor.Start when workers are
	// already registered.
	ErrAlreadyRunning = errors.New("workers already running")
)
