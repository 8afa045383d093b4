package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a run is submitted before Start or after Stop
	ErrSchedulerNotRunning = errors.New("recurring scheduler is not running")

	// ErrJobQueueFull is returned when the pending run queue has no free slot
	ErrJobQueueFull = errors.New("recurring run queue is full")

	// ErrInvalidConfig is returned for an unusable worker or trigger configuration
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
