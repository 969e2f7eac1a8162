package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const upsertStat = `
	INSERT INTO notification_stats (degree, course, event_type, num_events, num_mails)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (degree, course, event_type) DO UPDATE
	SET num_events = notification_stats.num_events + EXCLUDED.num_events,
	    num_mails = notification_stats.num_mails + EXCLUDED.num_mails`

// AddStats increments counters with one atomic upsert per key.
func (s *Store) AddStats(ctx context.Context, deltas ...notifications.StatCounter) error {
	for _, d := range deltas {
		_, err := s.db.Exec(ctx, upsertStat, d.Degree, d.Course, int16(d.Event), d.NumEvents, d.NumMails)
		if err != nil {
			return fmt.Errorf("upsert stats: %w", err)
		}
	}
	return nil
}

func (s *Store) Stats(ctx context.Context, f notifications.StatsFilter) ([]notifications.StatCounter, error) {
	q := &query{}
	if f.Degree > 0 {
		q.where("degree = " + q.arg(f.Degree))
	}
	if f.Course > 0 {
		q.where("course = " + q.arg(f.Course))
	}

	rows, err := s.db.Query(ctx,
		"SELECT degree, course, event_type, num_events, num_mails FROM notification_stats WHERE "+
			q.clause()+" ORDER BY degree, course, event_type",
		q.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notifications.StatCounter, error) {
		var (
			c     notifications.StatCounter
			event int16
		)
		err := row.Scan(&c.Degree, &c.Course, &event, &c.NumEvents, &c.NumMails)
		c.Event = notifications.EventTypeFromCode(int(event))
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}
	if out == nil {
		out = []notifications.StatCounter{}
	}
	return out, nil
}
