package pgstore

import (
	"context"
	"fmt"

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

	rows, err := s.db.Query(ctx,
		"SELECT user_id, notify, email FROM notification_preferences WHERE user_id = ANY($1::bigint[])",
		userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id            int64
			notify, email int64
		)
		if err := rows.Scan(&id, &notify, &email); err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		out[id] = notifications.Preferences{
			UserID: id,
			Notify: notifications.EventSet(notify),
			Email:  notifications.EventSet(email),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	return out, nil
}

func (s *Store) SetPreferences(ctx context.Context, p notifications.Preferences) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_preferences (user_id, notify, email, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET notify = EXCLUDED.notify, email = EXCLUDED.email, updated_at = now()`,
		p.UserID, int64(p.Notify), int64(p.Email),
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
