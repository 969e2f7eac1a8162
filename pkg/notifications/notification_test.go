package notifications

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotification_MarshalJSON(t *testing.T) {
	t.Parallel()

	n := Notification{
		ID:        uuid.New(),
		Event:     EventNotice,
		ToUser:    4,
		FromUser:  2,
		Location:  Location{Course: 10},
		SourceRef: 8,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:    StatusFromBits(uint8(BitEmail | BitRead)),
	}

	b, err := json.Marshal(n)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, n.ID.String(), got["id"])
	assert.Equal(t, "notice", got["event"])
	assert.EqualValues(t, 5, got["status"])
	assert.Equal(t, "cancelled", got["derived_status"])
	assert.Equal(t, true, got["read"])
	assert.Equal(t, false, got["removed"])
	assert.Equal(t, map[string]any{"course": float64(10)}, got["location"])
}

func TestNotification_Seen(t *testing.T) {
	t.Parallel()
	assert.False(t, Notification{Status: StatusFromBits(uint8(BitEmail | BitSent))}.Seen())
	assert.True(t, Notification{Status: StatusFromBits(uint8(BitRead))}.Seen())
	assert.True(t, Notification{Status: StatusFromBits(uint8(BitRemoved))}.Seen())
}

func TestLocation_Normalize(t *testing.T) {
	t.Parallel()
	got := Location{Institution: -1, Center: 0, Degree: 3, Course: -5}.Normalize()
	assert.Equal(t, Location{Degree: 3}, got)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	assert.True(t, Filter{}.Empty())
	assert.True(t, Filter{Events: []EventType{EventMessage}}.Empty())
	assert.False(t, Filter{ToUser: 1}.Empty())
	assert.False(t, Filter{Course: 1}.Empty())

	n := Notification{ID: uuid.New(), Event: EventMessage, ToUser: 1, SourceRef: 3, Location: Location{Course: 10}}
	assert.True(t, Filter{ToUser: 1, Course: 10}.Match(n))
	assert.False(t, Filter{Course: 10, ExceptEvent: EventMessage}.Match(n))
	assert.False(t, Filter{SourceRefs: []int64{4}}.Match(n))
	assert.True(t, Filter{IDs: []uuid.UUID{uuid.New(), n.ID}}.Match(n))
}

func TestIsUnderPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, prefix string
		want         bool
	}{
		{"a/b/c.pdf", "a", true},
		{"a/b/c.pdf", "a/b", true},
		{"/a/b/", "a/b", true},
		{"a/b", "a/b", true},
		{"ab/c.pdf", "a", false},
		{"a/bc.pdf", "a/b", false},
		{"x.pdf", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsUnderPath(tt.path, tt.prefix), "%q under %q", tt.path, tt.prefix)
	}
}

func TestTallyStats(t *testing.T) {
	t.Parallel()

	batch := []Notification{
		{Event: EventForumReply, Location: Location{Degree: 1, Course: 10}},
		{Event: EventForumReply, Location: Location{Degree: 1, Course: 10}},
		{Event: EventMessage, Location: Location{Degree: 1, Course: 10}},
		{Event: EventForumReply, Location: Location{Degree: 1, Course: 11}},
	}

	assert.Equal(t, []StatCounter{
		{StatKey: StatKey{Degree: 1, Course: 10, Event: EventForumReply}, NumEvents: 2, NumMails: 1},
		{StatKey: StatKey{Degree: 1, Course: 10, Event: EventMessage}, NumEvents: 1, NumMails: 1},
		{StatKey: StatKey{Degree: 1, Course: 11, Event: EventForumReply}, NumEvents: 1, NumMails: 1},
	}, TallyStats(batch))
}

func TestPreferences_Normalize(t *testing.T) {
	t.Parallel()

	p := Preferences{
		UserID: 1,
		Notify: NewEventSet(EventMessage) | 1, // bit 0 is EventUnknown
		Email:  NewEventSet(EventMessage, EventSurvey),
	}.Normalize()

	assert.Equal(t, NewEventSet(EventMessage), p.Notify)
	assert.Equal(t, NewEventSet(EventMessage), p.Email)
}
