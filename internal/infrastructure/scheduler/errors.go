package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSyncAlreadyRunning is returned when a catalog sync is requested while one is in progress
	ErrSyncAlreadyRunning = errors.New("catalog sync already in progress")
)
