package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Manager creates notifications for domain events and drives their lifecycle.
type Manager struct {
	storage     Storage
	preferences PreferenceStore
	files       FileIndex
	summarizer  Summarizer
	cfg         Config
	now         func() time.Time
	logger      *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithFileIndex sets the index used to cascade removals below a folder.
func WithFileIndex(idx FileIndex) ManagerOption {
	return func(m *Manager) {
		m.files = idx
	}
}

// WithSummarizer sets the content summarizer.
func WithSummarizer(s Summarizer) ManagerOption {
	return func(m *Manager) {
		m.summarizer = s
	}
}

// WithConfig sets retention settings.
func WithConfig(cfg Config) ManagerOption {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a new notification manager.
func NewManager(storage Storage, preferences PreferenceStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		storage:     storage,
		preferences: preferences,
		cfg: Config{
			Retention:         30 * 24 * time.Hour,
			ResolvedRetention: 7 * 24 * time.Hour,
		},
		now:    time.Now,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RecordEvent creates one notification per recipient that opted in to the
// event type and returns how many of them were flagged for email.
// Non-positive and repeated recipient ids are ignored.
func (m *Manager) RecordEvent(ctx context.Context, ev Event, recipients []int64) (int, error) {
	if !ev.Type.Valid() {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Ignoring event of unknown type",
			logger.EventType(ev.Type.String()),
			logger.SourceRef(ev.SourceRef),
		)
		return 0, ErrUnknownEventType
	}

	users := uniqueUsers(recipients)
	if len(users) == 0 {
		return 0, nil
	}

	prefs, err := m.preferences.Preferences(ctx, users...)
	if err != nil {
		return 0, errors.Join(ErrFailedToLoadPreferences, err)
	}

	now := m.now()
	loc := ev.Location.Normalize()
	notifs := make([]Notification, 0, len(users))
	emails := 0
	for _, u := range users {
		p := prefs[u]
		if !p.Notify.Has(ev.Type) {
			continue
		}
		var st Status
		if p.Email.Has(ev.Type) {
			st = st.With(BitEmail)
			emails++
		}
		notifs = append(notifs, Notification{
			ID:        uuid.New(),
			Event:     ev.Type,
			ToUser:    u,
			FromUser:  ev.FromUser,
			Location:  loc,
			SourceRef: ev.SourceRef,
			CreatedAt: now,
			Status:    st,
		})
	}

	if len(notifs) == 0 {
		return 0, nil
	}

	if err := m.storage.Create(ctx, notifs...); err != nil {
		return 0, errors.Join(ErrFailedToStore, err)
	}

	m.logger.LogAttrs(ctx, slog.LevelDebug, "Recorded event",
		logger.EventType(ev.Type.String()),
		logger.SourceRef(ev.SourceRef),
		logger.Count(len(notifs)),
		slog.Int("emails", emails),
	)

	return emails, nil
}

// Notify resolves the audience of an event, drops the actor, and records it.
func (m *Manager) Notify(ctx context.Context, ev Event, resolver RecipientResolver) (int, error) {
	if !ev.Type.Valid() {
		return 0, ErrUnknownEventType
	}

	recipients, err := resolver.Recipients(ctx, ev.Type, ev.SourceRef)
	if err != nil {
		return 0, errors.Join(ErrFailedToResolveRecipients, err)
	}

	filtered := recipients[:0:0]
	for _, u := range recipients {
		if u != ev.FromUser {
			filtered = append(filtered, u)
		}
	}

	return m.RecordEvent(ctx, ev, filtered)
}

// List returns a user's notifications, newest first.
func (m *Manager) List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, error) {
	notifs, err := m.storage.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifs, nil
}

// Get returns a single notification addressed to userID.
func (m *Manager) Get(ctx context.Context, userID int64, id uuid.UUID) (*Notification, error) {
	n, err := m.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.ToUser != userID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

// CountUnseen counts notifications the user has neither read nor lost.
// A non-zero since counts only notifications created after it.
func (m *Manager) CountUnseen(ctx context.Context, userID int64, since time.Time) (int, error) {
	count, err := m.storage.CountUnseen(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count unseen notifications: %w", err)
	}
	return count, nil
}

// Summary describes the content a notification refers to.
func (m *Manager) Summary(ctx context.Context, n Notification) Summary {
	if n.Status.Has(BitRemoved) {
		return UnavailableSummary
	}
	return Summarize(ctx, m.summarizer, n.Event, n.SourceRef)
}

// Preferences returns the stored preferences of a user.
func (m *Manager) Preferences(ctx context.Context, userID int64) (Preferences, error) {
	prefs, err := m.preferences.Preferences(ctx, userID)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs[userID], nil
}

// SetPreferences stores preferences after dropping email opt-ins that lack
// the matching notification opt-in. Existing notifications are unaffected.
func (m *Manager) SetPreferences(ctx context.Context, p Preferences) error {
	if err := m.preferences.SetPreferences(ctx, p.Normalize()); err != nil {
		return fmt.Errorf("failed to store preferences: %w", err)
	}
	return nil
}

// Purge deletes notifications past their retention age.
func (m *Manager) Purge(ctx context.Context) (int64, error) {
	now := m.now()
	opts := PurgeOptions{}
	if m.cfg.Retention > 0 {
		opts.CreatedBefore = now.Add(-m.cfg.Retention)
	}
	if m.cfg.ResolvedRetention > 0 {
		opts.ResolvedBefore = now.Add(-m.cfg.ResolvedRetention)
	}
	if opts.CreatedBefore.IsZero() && opts.ResolvedBefore.IsZero() {
		return 0, nil
	}

	deleted, err := m.storage.Purge(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "Purged old notifications", logger.Count(int(deleted)))
	return deleted, nil
}

func uniqueUsers(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
