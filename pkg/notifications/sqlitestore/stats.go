package sqlitestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func (s *Store) AddStats(ctx context.Context, deltas ...notifications.StatCounter) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range deltas {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notification_stats (degree, course, event_type, num_events, num_mails)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (degree, course, event_type) DO UPDATE
			SET num_events = num_events + excluded.num_events,
			    num_mails = num_mails + excluded.num_mails`,
			d.Degree, d.Course, int(d.Event), d.NumEvents, d.NumMails,
		)
		if err != nil {
			return fmt.Errorf("upserting stats: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) Stats(ctx context.Context, f notifications.StatsFilter) ([]notifications.StatCounter, error) {
	var (
		conds []string
		args  []any
	)
	if f.Degree > 0 {
		conds = append(conds, "degree = ?")
		args = append(args, f.Degree)
	}
	if f.Course > 0 {
		conds = append(conds, "course = ?")
		args = append(args, f.Course)
	}

	query := "SELECT degree, course, event_type, num_events, num_mails FROM notification_stats"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY degree, course, event_type"

	var rows []struct {
		Degree    int64 `db:"degree"`
		Course    int64 `db:"course"`
		EventType int   `db:"event_type"`
		NumEvents int64 `db:"num_events"`
		NumMails  int64 `db:"num_mails"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("selecting stats: %w", err)
	}

	out := make([]notifications.StatCounter, 0, len(rows))
	for _, r := range rows {
		out = append(out, notifications.StatCounter{
			StatKey: notifications.StatKey{
				Degree: r.Degree,
				Course: r.Course,
				Event:  notifications.EventTypeFromCode(r.EventType),
			},
			NumEvents: r.NumEvents,
			NumMails:  r.NumMails,
		})
	}
	return out, nil
}
