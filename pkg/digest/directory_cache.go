package digest

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/cache"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// CachedDirectory keeps recently resolved recipients and scope names in
// memory. Writes go through to the underlying store and refresh the cache.
// Lookup failures are not cached.
type CachedDirectory struct {
	store      DirectoryStore
	recipients *cache.LRU[int64, Recipient]
	scopes     *cache.LRU[scopeKey, string]
}

// NewCachedDirectory wraps store with caches of size entries each that
// expire after ttl. A non-positive ttl keeps entries until evicted.
func NewCachedDirectory(store DirectoryStore, size int, ttl time.Duration, opts ...cache.Option) *CachedDirectory {
	opts = append([]cache.Option{cache.WithTTL(ttl)}, opts...)
	return &CachedDirectory{
		store:      store,
		recipients: cache.New[int64, Recipient](size, opts...),
		scopes:     cache.New[scopeKey, string](size, opts...),
	}
}

func (d *CachedDirectory) Recipient(ctx context.Context, userID int64) (Recipient, error) {
	if r, ok := d.recipients.Get(userID); ok {
		return r, nil
	}
	r, err := d.store.Recipient(ctx, userID)
	if err != nil {
		return r, err
	}
	d.recipients.Put(userID, r)
	return r, nil
}

func (d *CachedDirectory) ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error) {
	key := scopeKey{kind, id}
	if name, ok := d.scopes.Get(key); ok {
		return name, nil
	}
	name, err := d.store.ScopeName(ctx, kind, id)
	if err != nil {
		return name, err
	}
	d.scopes.Put(key, name)
	return name, nil
}

func (d *CachedDirectory) SetRecipient(ctx context.Context, r Recipient) error {
	if err := d.store.SetRecipient(ctx, r); err != nil {
		d.recipients.Remove(r.UserID)
		return err
	}
	d.recipients.Put(r.UserID, r)
	return nil
}

func (d *CachedDirectory) SetScopeName(ctx context.Context, kind notifications.ScopeKind, id int64, name string) error {
	key := scopeKey{kind, id}
	if err := d.store.SetScopeName(ctx, kind, id, name); err != nil {
		d.scopes.Remove(key)
		return err
	}
	d.scopes.Put(key, name)
	return nil
}
