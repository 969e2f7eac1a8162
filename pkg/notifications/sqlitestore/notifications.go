package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const (
	maskAll  = notifications.BitEmail | notifications.BitSent | notifications.BitRead | notifications.BitRemoved
	maskSeen = notifications.BitRead | notifications.BitRemoved
)

var (
	pendingCond = fmt.Sprintf("(status & %d) = %d", maskAll, notifications.BitEmail)
	unseenCond  = fmt.Sprintf("(status & %d) = 0", maskSeen)
)

// row is the database shape of a notification.
type row struct {
	ID          string `db:"id"`
	EventType   int    `db:"event_type"`
	ToUser      int64  `db:"to_user"`
	FromUser    int64  `db:"from_user"`
	Institution int64  `db:"institution"`
	Center      int64  `db:"center"`
	Degree      int64  `db:"degree"`
	Course      int64  `db:"course"`
	SourceRef   int64  `db:"source_ref"`
	CreatedAt   int64  `db:"created_at"`
	Status      uint8  `db:"status"`
}

func (r row) notification() (notifications.Notification, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return notifications.Notification{}, fmt.Errorf("parsing notification id %q: %w", r.ID, err)
	}
	return notifications.Notification{
		ID:     id,
		Event:  notifications.EventTypeFromCode(r.EventType),
		ToUser: r.ToUser,
		Location: notifications.Location{
			Institution: r.Institution,
			Center:      r.Center,
			Degree:      r.Degree,
			Course:      r.Course,
		},
		FromUser:  r.FromUser,
		SourceRef: r.SourceRef,
		CreatedAt: time.UnixMicro(r.CreatedAt).UTC(),
		Status:    notifications.StatusFromBits(r.Status),
	}, nil
}

func (s *Store) Create(ctx context.Context, notifs ...notifications.Notification) error {
	if len(notifs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO notifications (
			id, event_type, to_user, from_user,
			institution, center, degree, course,
			source_ref, created_at, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range notifs {
		if n.ID == uuid.Nil || n.ToUser <= 0 {
			return notifications.ErrInvalidNotification
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			n.ID.String(), int(n.Event), n.ToUser, n.FromUser,
			n.Location.Institution, n.Location.Center, n.Location.Degree, n.Location.Course,
			n.SourceRef, n.CreatedAt.UnixMicro(), n.Status.Bits(),
		)
		if err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*notifications.Notification, error) {
	var r row
	if err := s.db.GetContext(ctx, &r, "SELECT * FROM notifications WHERE id = ?", id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	n, err := r.notification()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) List(ctx context.Context, userID int64, opts notifications.ListOptions) ([]notifications.Notification, error) {
	conds := []string{"to_user = ?"}
	args := []any{userID}
	if !opts.IncludeSeen {
		conds = append(conds, unseenCond)
	}
	if !opts.Since.IsZero() {
		conds = append(conds, "created_at > ?")
		args = append(args, opts.Since.UnixMicro())
	}

	query := "SELECT * FROM notifications WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC, event_type DESC, id DESC"
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit <= 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, opts.Offset)
	}

	return s.selectNotifications(ctx, query, args...)
}

func (s *Store) SetBits(ctx context.Context, bits notifications.Bit, f notifications.Filter) (int64, error) {
	if f.Empty() {
		return 0, notifications.ErrEmptyFilter
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning status update: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, part := range splitFilter(f, maxInArgs) {
		where, args, err := filterClause(part)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE notifications SET status = status | ? WHERE "+where,
			append([]any{int(bits)}, args...)...,
		)
		if err != nil {
			return 0, fmt.Errorf("setting status bits: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("counting updated rows: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing status update: %w", err)
	}
	return total, nil
}

func (s *Store) PendingRecipients(ctx context.Context, cutoff time.Time) ([]int64, error) {
	users := []int64{}
	err := s.db.SelectContext(ctx, &users,
		"SELECT DISTINCT to_user FROM notifications WHERE "+pendingCond+" AND created_at <= ? ORDER BY to_user",
		cutoff.UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting pending recipients: %w", err)
	}
	return users, nil
}

func (s *Store) Pending(ctx context.Context, userID int64, cutoff time.Time) ([]notifications.Notification, error) {
	return s.selectNotifications(ctx,
		"SELECT * FROM notifications WHERE to_user = ? AND "+pendingCond+
			" AND created_at <= ? ORDER BY created_at, event_type, id",
		userID, cutoff.UnixMicro(),
	)
}

func (s *Store) SourceRefs(ctx context.Context, event notifications.EventType) ([]int64, error) {
	refs := []int64{}
	err := s.db.SelectContext(ctx, &refs,
		fmt.Sprintf("SELECT DISTINCT source_ref FROM notifications WHERE event_type = ? AND (status & %d) = 0 ORDER BY source_ref", notifications.BitRemoved),
		int(event),
	)
	if err != nil {
		return nil, fmt.Errorf("selecting source refs: %w", err)
	}
	return refs, nil
}

func (s *Store) CountUnseen(ctx context.Context, userID int64, since time.Time) (int, error) {
	query := "SELECT COUNT(*) FROM notifications WHERE to_user = ? AND " + unseenCond
	args := []any{userID}
	if !since.IsZero() {
		query += " AND created_at > ?"
		args = append(args, since.UnixMicro())
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting unseen notifications: %w", err)
	}
	return count, nil
}

func (s *Store) Purge(ctx context.Context, opts notifications.PurgeOptions) (int64, error) {
	var (
		ors  []string
		args []any
	)
	if !opts.CreatedBefore.IsZero() {
		ors = append(ors, "created_at < ?")
		args = append(args, opts.CreatedBefore.UnixMicro())
	}
	if !opts.ResolvedBefore.IsZero() {
		ors = append(ors, "(created_at < ? AND NOT "+pendingCond+")")
		args = append(args, opts.ResolvedBefore.UnixMicro())
	}
	if len(ors) == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE "+strings.Join(ors, " OR "), args...)
	if err != nil {
		return 0, fmt.Errorf("purging notifications: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) selectNotifications(ctx context.Context, query string, args ...any) ([]notifications.Notification, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("selecting notifications: %w", err)
	}

	out := make([]notifications.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.notification()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// maxInArgs bounds every IN list below SQLite's host parameter limit.
const maxInArgs = 500

// splitFilter breaks f into filters whose ID and source reference lists hold
// at most size entries. Each row matches exactly one of the parts.
func splitFilter(f notifications.Filter, size int) []notifications.Filter {
	ids := chunks(f.IDs, size)
	refs := chunks(f.SourceRefs, size)
	parts := make([]notifications.Filter, 0, len(ids)*len(refs))
	for _, idPart := range ids {
		for _, refPart := range refs {
			part := f
			part.IDs, part.SourceRefs = idPart, refPart
			parts = append(parts, part)
		}
	}
	return parts
}

func chunks[T any](s []T, size int) [][]T {
	if len(s) == 0 {
		return [][]T{nil}
	}
	return slices.Collect(slices.Chunk(s, size))
}

// filterClause renders f as a WHERE clause, expanding slices with sqlx.In.
func filterClause(f notifications.Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.IDs) > 0 {
		ids := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ids[i] = id.String()
		}
		conds = append(conds, "id IN (?)")
		args = append(args, ids)
	}
	if f.ToUser > 0 {
		conds = append(conds, "to_user = ?")
		args = append(args, f.ToUser)
	}
	if len(f.Events) > 0 {
		events := make([]int, len(f.Events))
		for i, e := range f.Events {
			events[i] = int(e)
		}
		conds = append(conds, "event_type IN (?)")
		args = append(args, events)
	}
	if f.ExceptEvent != notifications.EventUnknown {
		conds = append(conds, "event_type <> ?")
		args = append(args, int(f.ExceptEvent))
	}
	if len(f.SourceRefs) > 0 {
		conds = append(conds, "source_ref IN (?)")
		args = append(args, f.SourceRefs)
	}
	if f.Course > 0 {
		conds = append(conds, "course = ?")
		args = append(args, f.Course)
	}

	where, args, err := sqlx.In(strings.Join(conds, " AND "), args...)
	if err != nil {
		return "", nil, fmt.Errorf("expanding filter: %w", err)
	}
	return where, args, nil
}
