package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Recipient returns the digest address of a user.
func (s *Store) Recipient(ctx context.Context, userID int64) (digest.Recipient, error) {
	r := digest.Recipient{UserID: userID}
	err := s.db.QueryRow(ctx,
		"SELECT email, name FROM notification_contacts WHERE user_id = $1", userID,
	).Scan(&r.Email, &r.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return digest.Recipient{}, digest.ErrRecipientNotFound
	}
	if err != nil {
		return digest.Recipient{}, fmt.Errorf("select contact: %w", err)
	}
	return r, nil
}

func (s *Store) SetRecipient(ctx context.Context, r digest.Recipient) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_contacts (user_id, email, name, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()`,
		r.UserID, r.Email, r.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// ScopeName returns the display name of a course or forum.
func (s *Store) ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error) {
	var name string
	err := s.db.QueryRow(ctx,
		"SELECT name FROM notification_scopes WHERE kind = $1 AND id = $2", int16(kind), id,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", digest.ErrScopeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select scope: %w", err)
	}
	return name, nil
}

func (s *Store) SetScopeName(ctx context.Context, kind notifications.ScopeKind, id int64, name string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_scopes (kind, id, name) VALUES ($1, $2, $3)
		ON CONFLICT (kind, id) DO UPDATE SET name = EXCLUDED.name`,
		int16(kind), id, name,
	)
	if err != nil {
		return fmt.Errorf("upsert scope: %w", err)
	}
	return nil
}
