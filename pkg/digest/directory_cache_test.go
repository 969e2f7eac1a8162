package digest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/cache"
	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/storagetest"
)

// countingDirectory counts lookups that reach the store.
type countingDirectory struct {
	*digest.MemoryDirectory
	lookups int
	failSet bool
}

func (c *countingDirectory) Recipient(ctx context.Context, userID int64) (digest.Recipient, error) {
	c.lookups++
	return c.MemoryDirectory.Recipient(ctx, userID)
}

func (c *countingDirectory) ScopeName(ctx context.Context, kind notifications.ScopeKind, id int64) (string, error) {
	c.lookups++
	return c.MemoryDirectory.ScopeName(ctx, kind, id)
}

func (c *countingDirectory) SetRecipient(ctx context.Context, r digest.Recipient) error {
	if c.failSet {
		return errors.New("write failed")
	}
	return c.MemoryDirectory.SetRecipient(ctx, r)
}

func TestCachedDirectory_Conformance(t *testing.T) {
	storagetest.RunDirectory(t, func(t *testing.T) digest.DirectoryStore {
		return digest.NewCachedDirectory(digest.NewMemoryDirectory(), 16, time.Minute)
	})
}

func TestCachedDirectory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := &countingDirectory{MemoryDirectory: digest.NewMemoryDirectory()}
	require.NoError(t, store.MemoryDirectory.SetRecipient(ctx, digest.Recipient{UserID: 1, Email: "a@uni.edu", Name: "Ann"}))
	require.NoError(t, store.MemoryDirectory.SetScopeName(ctx, notifications.ScopeCourse, 10, "Algebra I"))

	d := digest.NewCachedDirectory(store, 16, time.Minute, cache.WithClock(func() time.Time { return now }))

	for range 3 {
		r, err := d.Recipient(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Ann", r.Name)
		name, err := d.ScopeName(ctx, notifications.ScopeCourse, 10)
		require.NoError(t, err)
		assert.Equal(t, "Algebra I", name)
	}
	assert.Equal(t, 2, store.lookups, "repeated lookups are served from memory")

	_, err := d.Recipient(ctx, 2)
	assert.ErrorIs(t, err, digest.ErrRecipientNotFound)
	_, err = d.Recipient(ctx, 2)
	assert.ErrorIs(t, err, digest.ErrRecipientNotFound)
	assert.Equal(t, 4, store.lookups, "misses are not cached")

	now = now.Add(time.Minute)
	_, err = d.Recipient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, store.lookups, "expired entries are reloaded")

	require.NoError(t, d.SetRecipient(ctx, digest.Recipient{UserID: 1, Email: "ann@uni.edu", Name: "Ann Smith"}))
	r, err := d.Recipient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", r.Name)
	assert.Equal(t, 5, store.lookups, "writes refresh the cache")

	store.failSet = true
	assert.Error(t, d.SetRecipient(ctx, digest.Recipient{UserID: 1, Email: "x@uni.edu"}))
	r, err = d.Recipient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ann@uni.edu", r.Email, "failed write drops the cached entry and reloads")
	assert.Equal(t, 6, store.lookups)
}
