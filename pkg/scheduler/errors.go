package scheduler

import "errors"

var (
	ErrTaskAlreadyRegistered  = errors.New("task already registered")
	ErrTaskNotFound           = errors.New("task not found")
	ErrSchedulerNotConfigured = errors.New("scheduler has no tasks")
	ErrInvalidSchedule        = errors.New("invalid schedule")
	ErrTaskPanicked           = errors.New("task panicked")
)
