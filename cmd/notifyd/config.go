package main

import (
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

// storeConfig covers what no package config does.
type storeConfig struct {
	SQLitePath string `env:"SQLITE_PATH" envDefault:"./tmp/notifykit.db"` // Used when PG_CONN_URL is empty.
	PurgeAt    string `env:"PURGE_AT" envDefault:"03:30"`                 // Daily retention sweep, HH:MM local time.
}

type appConfig struct {
	Log       logger.Config
	Store     storeConfig
	Postgres  pg.Config
	Redis     redis.Config
	Email     email.Config
	HTTP      httpserver.Config
	Notify    notifications.Config
	Digest    digest.Config
	Scheduler scheduler.Config
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	loaders := []func() error{
		func() error { return config.Load(&cfg.Log) },
		func() error { return config.Load(&cfg.Store) },
		func() error { return config.Load(&cfg.Postgres) },
		func() error { return config.Load(&cfg.Redis) },
		func() error { return config.Load(&cfg.Email) },
		func() error { return config.Load(&cfg.HTTP) },
		func() error { return config.Load(&cfg.Notify) },
		func() error { return config.Load(&cfg.Digest) },
		func() error { return config.Load(&cfg.Scheduler) },
	}
	for _, load := range loaders {
		if err := load(); err != nil {
			return appConfig{}, err
		}
	}
	return cfg, nil
}
