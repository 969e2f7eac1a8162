package digest

import "time"

// Config holds digest pass settings.
type Config struct {
	MinAge         time.Duration `env:"DIGEST_MIN_AGE" envDefault:"30m"`      // Records younger than this wait for the next pass.
	SendTimeout    time.Duration `env:"DIGEST_SEND_TIMEOUT" envDefault:"30s"` // Bounds one mailer call.
	Interval       time.Duration `env:"DIGEST_INTERVAL" envDefault:"5m"`      // How often the scheduler runs a pass.
	LockTTL        time.Duration `env:"DIGEST_LOCK_TTL" envDefault:"10m"`     // Expiry of the cross-process lock.
	PlatformName   string        `env:"DIGEST_PLATFORM_NAME" envDefault:"Campus"`
	PlatformURL    string        `env:"DIGEST_PLATFORM_URL" envDefault:"https://campus.example.edu"`
	TimeZone       string        `env:"DIGEST_TIMEZONE" envDefault:"UTC"`
	AllowedDomains []string      `env:"DIGEST_ALLOWED_DOMAINS" envSeparator:","` // Empty allows every domain.

	DirectoryCacheSize int           `env:"DIGEST_DIRECTORY_CACHE_SIZE" envDefault:"4096"`
	DirectoryCacheTTL  time.Duration `env:"DIGEST_DIRECTORY_CACHE_TTL" envDefault:"10m"`
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		MinAge:       30 * time.Minute,
		SendTimeout:  30 * time.Second,
		Interval:     5 * time.Minute,
		LockTTL:      10 * time.Minute,
		PlatformName: "Campus",
		PlatformURL:  "https://campus.example.edu",
		TimeZone:     "UTC",

		DirectoryCacheSize: 4096,
		DirectoryCacheTTL:  10 * time.Minute,
	}
}
