package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func (s *Store) IsUnderPath(ctx context.Context, container, ref int64, pathPrefix string) (bool, error) {
	var path string
	err := s.db.GetContext(ctx, &path,
		"SELECT path FROM notification_files WHERE container = ? AND ref = ?", container, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("selecting file path: %w", err)
	}
	return notifications.IsUnderPath(path, pathPrefix), nil
}

func (s *Store) SetFilePath(ctx context.Context, container, ref int64, path string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_files (container, ref, path) VALUES (?, ?, ?)
		ON CONFLICT (container, ref) DO UPDATE SET path = excluded.path`,
		container, ref, strings.Trim(path, "/"),
	)
	if err != nil {
		return fmt.Errorf("upserting file path: %w", err)
	}
	return nil
}
