package sqlitestore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func (s *Store) Preferences(ctx context.Context, userIDs ...int64) (map[int64]notifications.Preferences, error) {
	out := make(map[int64]notifications.Preferences, len(userIDs))
	for _, id := range userIDs {
		out[id] = notifications.Preferences{UserID: id}
	}
	if len(userIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT user_id, notify, email FROM notification_preferences WHERE user_id IN (?)", userIDs)
	if err != nil {
		return nil, fmt.Errorf("expanding preferences query: %w", err)
	}

	var rows []struct {
		UserID int64  `db:"user_id"`
		Notify uint32 `db:"notify"`
		Email  uint32 `db:"email"`
	}
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("selecting preferences: %w", err)
	}

	for _, r := range rows {
		out[r.UserID] = notifications.Preferences{
			UserID: r.UserID,
			Notify: notifications.EventSet(r.Notify),
			Email:  notifications.EventSet(r.Email),
		}
	}
	return out, nil
}

func (s *Store) SetPreferences(ctx context.Context, p notifications.Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, notify, email) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET notify = excluded.notify, email = excluded.email`,
		p.UserID, uint32(p.Notify), uint32(p.Email),
	)
	if err != nil {
		return fmt.Errorf("upserting preferences: %w", err)
	}
	return nil
}
