package notifications

import (
	"context"
	"sync"
)

// Preferences holds a user's opt-ins per event type.
type Preferences struct {
	UserID int64    `json:"user_id"`
	Notify EventSet `json:"notify"` // create a notification at all
	Email  EventSet `json:"email"`  // set the email bit on creation
}

// Normalize drops unknown events and email opt-ins without the matching
// notification opt-in.
func (p Preferences) Normalize() Preferences {
	p.Notify = p.Notify.Intersect(AllEvents)
	p.Email = p.Email.Intersect(p.Notify)
	return p
}

// PreferenceStore persists per-user preferences.
type PreferenceStore interface {
	// Preferences returns the preferences of the given users. Users without
	// stored preferences are present with empty sets.
	Preferences(ctx context.Context, userIDs ...int64) (map[int64]Preferences, error)

	// SetPreferences replaces the stored preferences of p.UserID.
	SetPreferences(ctx context.Context, p Preferences) error
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	prefs map[int64]Preferences
	mu    sync.RWMutex
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[int64]Preferences)}
}

func (s *MemoryPreferenceStore) Preferences(ctx context.Context, userIDs ...int64) (map[int64]Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]Preferences, len(userIDs))
	for _, id := range userIDs {
		p, ok := s.prefs[id]
		if !ok {
			p = Preferences{UserID: id}
		}
		out[id] = p
	}
	return out, nil
}

func (s *MemoryPreferenceStore) SetPreferences(ctx context.Context, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[p.UserID] = p
	return nil
}
