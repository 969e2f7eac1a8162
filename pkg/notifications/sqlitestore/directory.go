package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

func (s *Store) Recipient(ctx context.Context, userID int64) (digest.Recipient, error) {
	r := digest.Recipient{UserID: userID}
	err := s.db.QueryRowxContext(ctx,
		"SELECT email, name FROM notification_contacts WHERE user_id = ?", userID,
	).Scan(&r.Email, &r.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return digest.Recipient{}, digest.ErrRecipientNotFound
	}
	if err != nil {
		return digest.Recipient{}, fmt.Errorf("selecting contact: %w", err)
	}
	return r, nil
}

func (s *Store) SetRecipient(ctx context.Context, r digest.Recipient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_contacts (user_id, email, name) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET email = excluded.email, name = excluded.name`,
		r.UserID, r.Email, r.Name,
	)
	if err != nil {
		return fmt.Errorf("upserting contact: %w", err)
	}
	return nil
}

func (s *Store) ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error) {
	var name string
	err := s.db.GetContext(ctx, &name,
		"SELECT name FROM notification_scopes WHERE kind = ? AND id = ?", int(kind), id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", digest.ErrScopeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("selecting scope: %w", err)
	}
	return name, nil
}

func (s *Store) SetScopeName(ctx context.Context, kind notifications.ScopeKind, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_scopes (kind, id, name) VALUES (?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET name = excluded.name`,
		int(kind), id, name,
	)
	if err != nil {
		return fmt.Errorf("upserting scope: %w", err)
	}
	return nil
}
