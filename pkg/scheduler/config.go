package scheduler

import "time"

// Config holds scheduler settings.
type Config struct {
	CheckInterval   time.Duration `env:"SCHEDULER_CHECK_INTERVAL" envDefault:"10s"`
	TaskTimeout     time.Duration `env:"SCHEDULER_TASK_TIMEOUT" envDefault:"10m"`
	ShutdownTimeout time.Duration `env:"SCHEDULER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}
