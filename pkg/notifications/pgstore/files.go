package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// IsUnderPath reports whether a file is at or below pathPrefix. Files the
// index has never seen are not under any folder.
func (s *Store) IsUnderPath(ctx context.Context, container, ref int64, pathPrefix string) (bool, error) {
	var path string
	err := s.db.QueryRow(ctx,
		"SELECT path FROM notification_files WHERE container = $1 AND ref = $2", container, ref,
	).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select file path: %w", err)
	}
	return notifications.IsUnderPath(path, pathPrefix), nil
}

func (s *Store) SetFilePath(ctx context.Context, container, ref int64, path string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_files (container, ref, path) VALUES ($1, $2, $3)
		ON CONFLICT (container, ref) DO UPDATE SET path = EXCLUDED.path`,
		container, ref, strings.Trim(path, "/"),
	)
	if err != nil {
		return fmt.Errorf("upsert file path: %w", err)
	}
	return nil
}
