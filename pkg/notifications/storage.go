package notifications

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Storage handles notification persistence and the status bit updates.
// Implementations must apply SetBits as one atomic OR per row.
type Storage interface {
	// Create stores new notifications.
	Create(ctx context.Context, notifs ...Notification) error

	// Get retrieves a single notification.
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)

	// List returns notifications addressed to a user, newest first.
	List(ctx context.Context, userID int64, opts ListOptions) ([]Notification, error)

	// SetBits ORs bits into the status of every notification matching f
	// and returns the number of matched rows.
	SetBits(ctx context.Context, bits Bit, f Filter) (int64, error)

	// PendingRecipients returns users having at least one notification
	// eligible for a digest created at or before cutoff.
	PendingRecipients(ctx context.Context, cutoff time.Time) ([]int64, error)

	// Pending returns the user's digest-eligible notifications created at or
	// before cutoff, oldest first.
	Pending(ctx context.Context, userID int64, cutoff time.Time) ([]Notification, error)

	// SourceRefs returns the distinct source references of an event type
	// that still have notifications not marked removed.
	SourceRefs(ctx context.Context, event EventType) ([]int64, error)

	// CountUnseen counts notifications neither read nor removed.
	// A non-zero since restricts the count to newer notifications.
	CountUnseen(ctx context.Context, userID int64, since time.Time) (int, error)

	// Purge physically deletes old notifications.
	Purge(ctx context.Context, opts PurgeOptions) (int64, error)
}

// Filter selects notifications for SetBits. Fields combine with AND;
// zero values do not constrain.
type Filter struct {
	IDs         []uuid.UUID
	ToUser      int64
	Events      []EventType
	ExceptEvent EventType
	SourceRefs  []int64
	Course      int64
}

// Empty reports whether f has no selective field, which would match every row.
func (f Filter) Empty() bool {
	return len(f.IDs) == 0 && f.ToUser <= 0 && len(f.SourceRefs) == 0 && f.Course <= 0
}

// Match evaluates the filter against a notification in memory.
func (f Filter) Match(n Notification) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, n.ID) {
		return false
	}
	if f.ToUser > 0 && n.ToUser != f.ToUser {
		return false
	}
	if len(f.Events) > 0 && !slices.Contains(f.Events, n.Event) {
		return false
	}
	if f.ExceptEvent != EventUnknown && n.Event == f.ExceptEvent {
		return false
	}
	if len(f.SourceRefs) > 0 && !slices.Contains(f.SourceRefs, n.SourceRef) {
		return false
	}
	if f.Course > 0 && n.Location.Course != f.Course {
		return false
	}
	return true
}

// PurgeOptions selects notifications for physical deletion.
type PurgeOptions struct {
	// CreatedBefore deletes every notification created before it.
	CreatedBefore time.Time
	// ResolvedBefore deletes notifications created before it whose email is
	// no longer pending.
	ResolvedBefore time.Time
}

// Eligible reports whether n belongs in a digest built with cutoff.
func Eligible(n Notification, cutoff time.Time) bool {
	return n.Status.Derived() == StatusPending && !n.CreatedAt.After(cutoff)
}
