package pgstore_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/pgstore"
	"github.com/dmitrymomot/notifykit/pkg/notifications/storagetest"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

// connect returns a migrated pool for the database named by
// NOTIFYKIT_TEST_PG_URL and skips the test when it is unset.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("NOTIFYKIT_TEST_PG_URL")
	if url == "" {
		t.Skip("NOTIFYKIT_TEST_PG_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := pg.Config{
		ConnectionString: url,
		MaxOpenConns:     4,
		RetryAttempts:    1,
		MigrationsTable:  "notifykit_test_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, slog.Default()))
	return pool
}

func emptyStore(t *testing.T, pool *pgxpool.Pool) *pgstore.Store {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE notifications, notification_preferences, notification_stats, notification_contacts, notification_scopes, notification_files")
	require.NoError(t, err)
	return pgstore.New(pool)
}

func TestStorage(t *testing.T) {
	pool := connect(t)
	storagetest.RunStorage(t, func(t *testing.T) notifications.Storage { return emptyStore(t, pool) })
}

func TestPreferences(t *testing.T) {
	pool := connect(t)
	storagetest.RunPreferences(t, func(t *testing.T) notifications.PreferenceStore { return emptyStore(t, pool) })
}

func TestStats(t *testing.T) {
	pool := connect(t)
	storagetest.RunStats(t, func(t *testing.T) notifications.StatsStore { return emptyStore(t, pool) })
}

func TestDirectory(t *testing.T) {
	pool := connect(t)
	storagetest.RunDirectory(t, func(t *testing.T) digest.DirectoryStore { return emptyStore(t, pool) })
}

func TestFileIndex(t *testing.T) {
	pool := connect(t)
	storagetest.RunFileIndex(t, func(t *testing.T) notifications.FileIndexStore { return emptyStore(t, pool) })
}
