package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[uuid.UUID]*Notification
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[uuid.UUID]*Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notifs ...Notification) error {
	for _, n := range notifs {
		if n.ID == uuid.Nil {
			return fmt.Errorf("%w: id is required", ErrInvalidNotification)
		}
		if n.ToUser <= 0 {
			return fmt.Errorf("%w: recipient is required", ErrInvalidNotification)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range notifs {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		s.notifications[n.ID] = &n
	}
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	// Return a copy to prevent external mutation of stored data
	notif := *n
	return &notif, nil
}

func (s *MemoryStorage) List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.ToUser != userID {
			continue
		}
		if !opts.IncludeSeen && n.Seen() {
			continue
		}
		if !opts.Since.IsZero() && !n.CreatedAt.After(opts.Since) {
			continue
		}
		out = append(out, *n)
	}

	slices.SortFunc(out, func(a, b Notification) int {
		return -compareNotifications(a, b)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Notification{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

func (s *MemoryStorage) SetBits(ctx context.Context, bits Bit, f Filter) (int64, error) {
	if f.Empty() {
		return 0, ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, notif := range s.notifications {
		if f.Match(*notif) {
			notif.Status = notif.Status.With(bits)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) PendingRecipients(ctx context.Context, cutoff time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, n := range s.notifications {
		if Eligible(*n, cutoff) {
			seen[n.ToUser] = struct{}{}
		}
	}

	users := make([]int64, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	slices.Sort(users)
	return users, nil
}

func (s *MemoryStorage) Pending(ctx context.Context, userID int64, cutoff time.Time) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.notifications {
		if n.ToUser == userID && Eligible(*n, cutoff) {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, compareNotifications)
	return out, nil
}

func (s *MemoryStorage) SourceRefs(ctx context.Context, event EventType) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, n := range s.notifications {
		if n.Event == event && !n.Status.Has(BitRemoved) {
			seen[n.SourceRef] = struct{}{}
		}
	}

	refs := make([]int64, 0, len(seen))
	for r := range seen {
		refs = append(refs, r)
	}
	slices.Sort(refs)
	return refs, nil
}

func (s *MemoryStorage) CountUnseen(ctx context.Context, userID int64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.ToUser != userID || n.Seen() {
			continue
		}
		if !since.IsZero() && !n.CreatedAt.After(since) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStorage) Purge(ctx context.Context, opts PurgeOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, n := range s.notifications {
		old := !opts.CreatedBefore.IsZero() && n.CreatedAt.Before(opts.CreatedBefore)
		resolved := !opts.ResolvedBefore.IsZero() &&
			n.CreatedAt.Before(opts.ResolvedBefore) &&
			n.Status.Derived() != StatusPending
		if old || resolved {
			delete(s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// compareNotifications orders by creation time, then event type, then id.
func compareNotifications(a, b Notification) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Event, b.Event); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
