package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
)

const notificationColumns = "id, event_type, to_user, from_user, institution, center, degree, course, source_ref, created_at, status"

var copyColumns = []string{"id", "event_type", "to_user", "from_user", "institution", "center", "degree", "course", "source_ref", "created_at", "status"}

func (s *Store) Create(ctx context.Context, notifs ...notifications.Notification) error {
	if len(notifs) == 0 {
		return nil
	}

	rows := make([][]any, len(notifs))
	for i, n := range notifs {
		if n.ID == uuid.Nil || n.ToUser <= 0 {
			return notifications.ErrInvalidNotification
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		rows[i] = []any{
			pgtype.UUID{Bytes: n.ID, Valid: true},
			int16(n.Event),
			n.ToUser,
			n.FromUser,
			n.Location.Institution,
			n.Location.Center,
			n.Location.Degree,
			n.Location.Course,
			n.SourceRef,
			n.CreatedAt,
			int16(n.Status.Bits()),
		}
	}

	if _, err := s.db.CopyFrom(ctx, pgx.Identifier{"notifications"}, copyColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy notifications: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*notifications.Notification, error) {
	rows, err := s.db.Query(ctx, "SELECT "+notificationColumns+" FROM notifications WHERE id = $1", id.String())
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

func (s *Store) List(ctx context.Context, userID int64, opts notifications.ListOptions) ([]notifications.Notification, error) {
	q := &query{}
	q.where("to_user = " + q.arg(userID))
	if !opts.IncludeSeen {
		q.where(unseenCond)
	}
	if !opts.Since.IsZero() {
		q.where("created_at > " + q.arg(opts.Since))
	}

	sql := "SELECT " + notificationColumns + " FROM notifications WHERE " + q.clause() +
		" ORDER BY created_at DESC, event_type DESC, id DESC"
	if opts.Limit > 0 {
		sql += " LIMIT " + q.arg(opts.Limit)
	}
	if opts.Offset > 0 {
		sql += " OFFSET " + q.arg(opts.Offset)
	}

	return s.queryNotifications(ctx, sql, q.args...)
}

func (s *Store) SetBits(ctx context.Context, bits notifications.Bit, f notifications.Filter) (int64, error) {
	if f.Empty() {
		return 0, notifications.ErrEmptyFilter
	}

	q := &query{}
	set := "status = status | " + q.arg(int16(bits))
	q.filter(f)

	tag, err := s.db.Exec(ctx, "UPDATE notifications SET "+set+" WHERE "+q.clause(), q.args...)
	if err != nil {
		return 0, fmt.Errorf("set status bits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) PendingRecipients(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		"SELECT DISTINCT to_user FROM notifications WHERE "+pendingCond+" AND created_at <= $1 ORDER BY to_user",
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending recipients: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("select pending recipients: %w", err)
	}
	return users, nil
}

func (s *Store) Pending(ctx context.Context, userID int64, cutoff time.Time) ([]notifications.Notification, error) {
	return s.queryNotifications(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE to_user = $1 AND "+pendingCond+
			" AND created_at <= $2 ORDER BY created_at, event_type, id",
		userID, cutoff,
	)
}

func (s *Store) SourceRefs(ctx context.Context, event notifications.EventType) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		"SELECT DISTINCT source_ref FROM notifications WHERE event_type = $1 AND (status & "+
			strconv.Itoa(int(maskRemoved))+") = 0 ORDER BY source_ref",
		int16(event),
	)
	if err != nil {
		return nil, fmt.Errorf("select source refs: %w", err)
	}
	refs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("select source refs: %w", err)
	}
	return refs, nil
}

func (s *Store) CountUnseen(ctx context.Context, userID int64, since time.Time) (int, error) {
	q := &query{}
	q.where("to_user = " + q.arg(userID))
	q.where(unseenCond)
	if !since.IsZero() {
		q.where("created_at > " + q.arg(since))
	}

	var count int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+q.clause(), q.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unseen notifications: %w", err)
	}
	return count, nil
}

func (s *Store) Purge(ctx context.Context, opts notifications.PurgeOptions) (int64, error) {
	q := &query{}
	var ors []string
	if !opts.CreatedBefore.IsZero() {
		ors = append(ors, "created_at < "+q.arg(opts.CreatedBefore))
	}
	if !opts.ResolvedBefore.IsZero() {
		ors = append(ors, "(created_at < "+q.arg(opts.ResolvedBefore)+" AND NOT "+pendingCond+")")
	}
	if len(ors) == 0 {
		return 0, nil
	}

	sql := "DELETE FROM notifications WHERE " + ors[0]
	for _, c := range ors[1:] {
		sql += " OR " + c
	}

	tag, err := s.db.Exec(ctx, sql, q.args...)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) queryNotifications(ctx context.Context, sql string, args ...any) ([]notifications.Notification, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	if out == nil {
		out = []notifications.Notification{}
	}
	return out, nil
}

func scanNotification(row pgx.CollectableRow) (notifications.Notification, error) {
	var (
		n      notifications.Notification
		id     pgtype.UUID
		event  int16
		status int16
	)
	err := row.Scan(
		&id,
		&event,
		&n.ToUser,
		&n.FromUser,
		&n.Location.Institution,
		&n.Location.Center,
		&n.Location.Degree,
		&n.Location.Course,
		&n.SourceRef,
		&n.CreatedAt,
		&status,
	)
	if err != nil {
		return n, err
	}
	if !id.Valid {
		return n, errors.New("notification without id")
	}
	n.ID = id.Bytes
	n.Event = notifications.EventTypeFromCode(int(event))
	n.Status = notifications.StatusFromBits(uint8(status))
	return n, nil
}
