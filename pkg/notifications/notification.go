package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Location is the hierarchical scope of a notification.
// A value <= 0 means the level does not apply.
type Location struct {
	Institution int64 `json:"institution,omitempty"`
	Center      int64 `json:"center,omitempty"`
	Degree      int64 `json:"degree,omitempty"`
	Course      int64 `json:"course,omitempty"`
}

// Normalize maps every non-positive level to zero.
func (l Location) Normalize() Location {
	pos := func(v int64) int64 {
		if v > 0 {
			return v
		}
		return 0
	}
	return Location{
		Institution: pos(l.Institution),
		Center:      pos(l.Center),
		Degree:      pos(l.Degree),
		Course:      pos(l.Course),
	}
}

// Event is a domain event raised by a feature module.
type Event struct {
	Type      EventType `json:"event"`
	FromUser  int64     `json:"from_user"`
	SourceRef int64     `json:"source_ref"`
	Location  Location  `json:"location"`
}

// Notification is one (recipient, event) pairing.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Event     EventType `json:"event"`
	ToUser    int64     `json:"to_user"`
	FromUser  int64     `json:"from_user"`
	Location  Location  `json:"location"`
	SourceRef int64     `json:"source_ref"`
	CreatedAt time.Time `json:"created_at"`
	Status    Status    `json:"-"`
}

// Seen reports whether the recipient has read or lost the content.
func (n Notification) Seen() bool {
	return n.Status.HasAny(BitRead | BitRemoved)
}

// MarshalJSON adds the status bits and the derived status to the output.
func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	return json.Marshal(struct {
		alias
		Status  uint8         `json:"status"`
		Derived DerivedStatus `json:"derived_status"`
		Read    bool          `json:"read"`
		Removed bool          `json:"removed"`
	}{
		alias:   alias(n),
		Status:  n.Status.Bits(),
		Derived: n.Status.Derived(),
		Read:    n.Status.Has(BitRead),
		Removed: n.Status.Has(BitRemoved),
	})
}

// ListOptions filters "my notifications" queries.
type ListOptions struct {
	IncludeSeen bool      // include read and removed notifications
	Since       time.Time // only notifications created after this time
	Limit       int       // 0 = no limit
	Offset      int
}
