package sqlitestore

import (
	"context"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS notifications (
				id          TEXT PRIMARY KEY,
				event_type  INTEGER NOT NULL,
				to_user     INTEGER NOT NULL,
				from_user   INTEGER NOT NULL DEFAULT 0,
				institution INTEGER NOT NULL DEFAULT 0,
				center      INTEGER NOT NULL DEFAULT 0,
				degree      INTEGER NOT NULL DEFAULT 0,
				course      INTEGER NOT NULL DEFAULT 0,
				source_ref  INTEGER NOT NULL DEFAULT 0,
				created_at  INTEGER NOT NULL,
				status      INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS notifications_to_user_idx ON notifications (to_user, created_at);
			CREATE INDEX IF NOT EXISTS notifications_source_idx ON notifications (event_type, source_ref);
			CREATE INDEX IF NOT EXISTS notifications_course_idx ON notifications (course);
			CREATE INDEX IF NOT EXISTS notifications_created_idx ON notifications (created_at);
		`,
	},
	{
		version: 2,
		sql: `
			CREATE TABLE IF NOT EXISTS notification_preferences (
				user_id INTEGER PRIMARY KEY,
				notify  INTEGER NOT NULL DEFAULT 0,
				email   INTEGER NOT NULL DEFAULT 0
			);
			CREATE TABLE IF NOT EXISTS notification_stats (
				degree     INTEGER NOT NULL DEFAULT 0,
				course     INTEGER NOT NULL DEFAULT 0,
				event_type INTEGER NOT NULL,
				num_events INTEGER NOT NULL DEFAULT 0,
				num_mails  INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (degree, course, event_type)
			);
		`,
	},
	{
		version: 3,
		sql: `
			CREATE TABLE IF NOT EXISTS notification_contacts (
				user_id INTEGER PRIMARY KEY,
				email   TEXT NOT NULL,
				name    TEXT NOT NULL DEFAULT ''
			);
			CREATE TABLE IF NOT EXISTS notification_scopes (
				kind INTEGER NOT NULL,
				id   INTEGER NOT NULL,
				name TEXT NOT NULL,
				PRIMARY KEY (kind, id)
			);
		`,
	},
	{
		version: 4,
		sql: `
			CREATE TABLE IF NOT EXISTS notification_files (
				container INTEGER NOT NULL,
				ref       INTEGER NOT NULL,
				path      TEXT NOT NULL,
				PRIMARY KEY (container, ref)
			);
		`,
	},
}

// migrate applies every migration newer than the recorded schema version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)",
	); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := s.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration v%d: %w", m.version, err)
		}
	}

	return nil
}
