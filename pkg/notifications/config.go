package notifications

import "time"

// Config holds retention settings.
type Config struct {
	Retention         time.Duration `env:"NOTIFY_RETENTION" envDefault:"720h"`          // Every notification older than this is purged.
	ResolvedRetention time.Duration `env:"NOTIFY_RESOLVED_RETENTION" envDefault:"168h"` // Notifications without a pending email older than this are purged.
}
