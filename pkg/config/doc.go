// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv for optional .env files with
// github.com/caarlos0/env/v11 for struct tag parsing, and caches each parsed
// configuration type for the lifetime of the process.
//
// # Usage
//
//	type Config struct {
//	    Addr   string        `env:"HTTP_ADDR" envDefault:":8080"`
//	    MinAge time.Duration `env:"DIGEST_MIN_AGE" envDefault:"30m"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Load and MustLoad read the default .env file once. Call LoadEnv first to
// use other files. ResetCache drops cached values so tests can reparse.
package config
