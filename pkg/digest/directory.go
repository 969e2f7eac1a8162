package digest

import (
	"context"
	"sync"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Recipient is the mail identity of a user.
type Recipient struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Directory resolves the names a digest needs.
type Directory interface {
	// Recipient returns the address and display name of a user, or
	// ErrRecipientNotFound.
	Recipient(ctx context.Context, userID int64) (Recipient, error)

	// ScopeName returns the display name of a course or forum, or
	// ErrScopeNotFound.
	ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error)
}

// DirectoryStore is a Directory that can be written to.
type DirectoryStore interface {
	Directory
	SetRecipient(ctx context.Context, r Recipient) error
	SetScopeName(ctx context.Context, kind notifications.ScopeKind, id int64, name string) error
}

type scopeKey struct {
	kind notifications.ScopeKind
	id   int64
}

// MemoryDirectory is an in-memory DirectoryStore.
type MemoryDirectory struct {
	recipients map[int64]Recipient
	scopes     map[scopeKey]string
	mu         sync.RWMutex
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		recipients: make(map[int64]Recipient),
		scopes:     make(map[scopeKey]string),
	}
}

func (d *MemoryDirectory) Recipient(ctx context.Context, userID int64) (Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.recipients[userID]
	if !ok {
		return Recipient{}, ErrRecipientNotFound
	}
	return r, nil
}

func (d *MemoryDirectory) ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.scopes[scopeKey{kind, id}]
	if !ok {
		return "", ErrScopeNotFound
	}
	return name, nil
}

func (d *MemoryDirectory) SetRecipient(ctx context.Context, r Recipient) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recipients[r.UserID] = r
	return nil
}

func (d *MemoryDirectory) SetScopeName(ctx context.Context, kind notifications.ScopeKind, id int64, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scopes[scopeKey{kind, id}] = name
	return nil
}
