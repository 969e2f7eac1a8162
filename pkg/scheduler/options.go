package scheduler

import (
	"log/slog"
	"time"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCheckInterval sets how often the scheduler looks for due tasks.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the logger for the scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConfig applies Config values.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		if cfg.CheckInterval > 0 {
			s.interval = cfg.CheckInterval
		}
		if cfg.TaskTimeout > 0 {
			s.timeout = cfg.TaskTimeout
		}
		if cfg.ShutdownTimeout > 0 {
			s.shutdown = cfg.ShutdownTimeout
		}
	}
}

// TaskOption configures a registered task.
type TaskOption func(*task)

// WithTaskTimeout bounds a single run of the task.
func WithTaskTimeout(d time.Duration) TaskOption {
	return func(t *task) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// RunOnStart makes the first run happen on the first check instead of
// waiting for the schedule.
func RunOnStart() TaskOption {
	return func(t *task) {
		t.runOnStart = true
	}
}
