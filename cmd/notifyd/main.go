// Command notifyd runs the notification engine: the JSON API, the periodic
// digest mailer and the daily retention sweep.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/pkg/api"
	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/notifications/sqlitestore"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped", logger.Error(err))
		os.Exit(1)
	}
}

// store is implemented by both the Postgres and the SQLite backends.
type store interface {
	notifications.Storage
	notifications.PreferenceStore
	notifications.StatsStore
	notifications.FileIndexStore
	digest.DirectoryStore
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Log, logger.WithContextExtractors(api.RequestIDExtractor()))
	logger.SetAsDefault(log)

	st, checks, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var locker digest.Locker
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = redis.NewLocker(client, cfg.Redis.LockPrefix)
		checks = append(checks, httpserver.Check{Name: "redis", Func: redis.Healthcheck(client)})
		log.InfoContext(ctx, "Digest passes are coordinated through Redis")
	}

	sender, err := newSender(cfg.Email, log)
	if err != nil {
		return err
	}

	var directory digest.DirectoryStore = st
	if cfg.Digest.DirectoryCacheSize > 0 {
		directory = digest.NewCachedDirectory(st, cfg.Digest.DirectoryCacheSize, cfg.Digest.DirectoryCacheTTL)
	}

	manager := notifications.NewManager(st, st,
		notifications.WithConfig(cfg.Notify),
		notifications.WithManagerLogger(log.With(logger.Component("notifications"))),
		notifications.WithFileIndex(st),
	)

	dispatcher, err := digest.NewDispatcher(st, st, directory, sender,
		digest.WithConfig(cfg.Digest),
		digest.WithLocker(locker),
		digest.WithLogger(log.With(logger.Component("digest"))),
	)
	if err != nil {
		return err
	}

	sched, err := newScheduler(cfg, dispatcher, manager, log)
	if err != nil {
		return err
	}

	handler := api.New(manager, st,
		api.WithLogger(log.With(logger.Component("api"))),
		api.WithDigest(dispatcher),
		api.WithDirectory(directory),
		api.WithFileIndex(st),
		api.WithReadinessChecks(checks...),
	).Handler()
	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(ctx) })
	g.Go(func() error { return server.Run(ctx, handler) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (store, []httpserver.Check, func(), error) {
	if !cfg.Postgres.Enabled() {
		s, err := sqlitestore.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		log.InfoContext(ctx, "Using SQLite store", slog.String("path", cfg.Store.SQLitePath))
		checks := []httpserver.Check{{Name: "sqlite", Func: s.Healthcheck}}
		return s, checks, func() { _ = s.Close() }, nil
	}

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pg.Migrate(ctx, pool, cfg.Postgres, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	checks := []httpserver.Check{{Name: "postgres", Func: pg.Healthcheck(pool)}}
	return pgstore.New(pool), checks, pool.Close, nil
}

// newSender returns the Postmark client when credentials are configured and
// a file writer otherwise.
func newSender(cfg email.Config, log *slog.Logger) (email.EmailSender, error) {
	if cfg.Enabled() {
		return email.NewPostmarkClient(cfg)
	}
	log.Warn("Postmark is not configured, digests are written to disk", slog.String("dir", cfg.DevOutputDir))
	return email.NewDevSender(cfg.DevOutputDir), nil
}

func newScheduler(cfg appConfig, dispatcher *digest.Dispatcher, manager *notifications.Manager, log *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(
		scheduler.WithConfig(cfg.Scheduler),
		scheduler.WithLogger(log.With(logger.Component("scheduler"))),
	)

	if err := sched.AddTask("digest", scheduler.EveryInterval(cfg.Digest.Interval), dispatcher.Run); err != nil {
		return nil, err
	}

	purgeAt, err := scheduler.ParseDaily(cfg.Store.PurgeAt)
	if err != nil {
		return nil, fmt.Errorf("PURGE_AT: %w", err)
	}
	purge := func(ctx context.Context) error {
		_, err := manager.Purge(ctx)
		return err
	}
	if err := sched.AddTask("purge", purgeAt, purge); err != nil {
		return nil, err
	}
	return sched, nil
}
