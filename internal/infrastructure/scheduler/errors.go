package scheduler

import "errors"

var (
	// ErrInvalidConfig wraps every rejected retention setting
	ErrInvalidConfig = errors.New("invalid retention configuration")

	// ErrAlreadyRunning is returned by RunOnce while a pass is in flight
	ErrAlreadyRunning = errors.New("retention pass already running")
)
