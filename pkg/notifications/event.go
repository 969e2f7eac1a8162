package notifications

import (
	"fmt"
	"strconv"
)

// EventType identifies what happened. The set is closed: every value is
// listed below and EventType.Info switches over all of them.
type EventType uint8

// Codes are persisted: never renumber an event, append new ones before
// eventTypeCount.
const (
	EventUnknown                    EventType = 0
	EventDocumentFile               EventType = 1
	EventTeachersFile               EventType = 2
	EventSharedFile                 EventType = 3
	EventAssignment                 EventType = 4
	EventExamAnnouncement           EventType = 5
	EventMarksFile                  EventType = 6
	EventEnrolmentStudent           EventType = 7
	EventEnrolmentTeacher           EventType = 8
	EventEnrolmentNonEditingTeacher EventType = 9
	EventEnrolmentRequest           EventType = 10
	EventTimelineComment            EventType = 11
	EventTimelineFav                EventType = 12
	EventTimelineShare              EventType = 13
	EventTimelineMention            EventType = 14
	EventFollower                   EventType = 15
	EventForumPostCourse            EventType = 16
	EventForumReply                 EventType = 17
	EventNotice                     EventType = 18
	EventMessage                    EventType = 19
	EventSurvey                     EventType = 20

	eventTypeCount EventType = 21
)

// ScopeKind tells how a notification's location is presented.
type ScopeKind uint8

const (
	ScopeNone ScopeKind = iota
	ScopeCourse
	ScopeForum
)

// EventInfo is the static catalog entry of an event type.
type EventInfo struct {
	Name   string    // stable name used in JSON and by web service clients
	Title  string    // short human readable title
	Icon   string    // icon file name
	Action string    // default navigation target
	Scope  ScopeKind // how the location is shown
}

// CourseScoped reports whether notifications of this type belong to a course.
func (i EventInfo) CourseScoped() bool {
	return i.Scope == ScopeCourse
}

// Info returns the catalog entry for e. Unknown values map to EventUnknown.
func (e EventType) Info() EventInfo {
	switch e {
	case EventDocumentFile:
		return EventInfo{"documentFile", "New file in Documents", "file.svg", "documents", ScopeCourse}
	case EventTeachersFile:
		return EventInfo{"teachersFile", "New file in Teachers' files", "file.svg", "teachers-files", ScopeCourse}
	case EventSharedFile:
		return EventInfo{"sharedFile", "New shared file", "file.svg", "shared-files", ScopeCourse}
	case EventAssignment:
		return EventInfo{"assignment", "New assignment", "edit.svg", "assignments", ScopeCourse}
	case EventExamAnnouncement:
		return EventInfo{"examAnnouncement", "New announcement of exam", "bullhorn.svg", "exam-announcements", ScopeCourse}
	case EventMarksFile:
		return EventInfo{"marksFile", "New file in Marks", "list-alt.svg", "marks", ScopeCourse}
	case EventEnrolmentStudent:
		return EventInfo{"enrollmentStudent", "Enrolment as a student", "user.svg", "enrolment", ScopeCourse}
	case EventEnrolmentTeacher:
		return EventInfo{"enrollmentTeacher", "Enrolment as a teacher", "user-tie.svg", "enrolment", ScopeCourse}
	case EventEnrolmentNonEditingTeacher:
		return EventInfo{"enrollmentNonEditingTeacher", "Enrolment as a non-editing teacher", "user-tie.svg", "enrolment", ScopeCourse}
	case EventEnrolmentRequest:
		return EventInfo{"enrollmentRequest", "Request for enrolment", "hand-point-up.svg", "enrolment-requests", ScopeCourse}
	case EventTimelineComment:
		return EventInfo{"timelineComment", "New comment on a post", "comment-dots.svg", "timeline", ScopeNone}
	case EventTimelineFav:
		return EventInfo{"timelineFav", "New favourite", "star.svg", "timeline", ScopeNone}
	case EventTimelineShare:
		return EventInfo{"timelineShare", "New share", "retweet.svg", "timeline", ScopeNone}
	case EventTimelineMention:
		return EventInfo{"timelineMention", "New mention", "at.svg", "timeline", ScopeNone}
	case EventFollower:
		return EventInfo{"follower", "New follower", "user-plus.svg", "followers", ScopeNone}
	case EventForumPostCourse:
		return EventInfo{"forumPostCourse", "New post in a forum", "comments.svg", "forums", ScopeForum}
	case EventForumReply:
		return EventInfo{"forumReply", "New reply to your post", "comments.svg", "forums", ScopeForum}
	case EventNotice:
		return EventInfo{"notice", "New notice", "sticky-note.svg", "notices", ScopeCourse}
	case EventMessage:
		return EventInfo{"message", "New message", "envelope.svg", "messages", ScopeCourse}
	case EventSurvey:
		return EventInfo{"survey", "New survey", "poll.svg", "surveys", ScopeCourse}
	default:
		return EventInfo{"unknown", "Unknown event", "question.svg", "notifications", ScopeNone}
	}
}

// Valid reports whether e is a known, non-Unknown event type.
func (e EventType) Valid() bool {
	return e > EventUnknown && e < eventTypeCount
}

func (e EventType) String() string {
	return e.Info().Name
}

// MarshalText encodes the event type as its stable name.
func (e EventType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes a stable name or a numeric code. An empty value
// decodes to EventUnknown; anything else that matches no event type is an
// ErrUnknownEventType error.
func (e *EventType) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*e = EventUnknown
		return nil
	}
	v := ParseEventType(string(b))
	if v == EventUnknown {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, b)
	}
	*e = v
	return nil
}

// EventTypes returns every valid event type in code order.
func EventTypes() []EventType {
	out := make([]EventType, 0, eventTypeCount-1)
	for e := EventUnknown + 1; e < eventTypeCount; e++ {
		out = append(out, e)
	}
	return out
}

var eventsByName = func() map[string]EventType {
	m := make(map[string]EventType, eventTypeCount)
	for e := EventUnknown + 1; e < eventTypeCount; e++ {
		m[e.Info().Name] = e
	}
	return m
}()

// ParseEventType resolves a stable name or a numeric code.
// Anything unrecognized resolves to EventUnknown.
func ParseEventType(s string) EventType {
	if e, ok := eventsByName[s]; ok {
		return e
	}
	if n, err := strconv.Atoi(s); err == nil {
		return EventTypeFromCode(n)
	}
	return EventUnknown
}

// EventTypeFromCode converts a stored numeric code. Codes of retired or
// future event types resolve to EventUnknown.
func EventTypeFromCode(code int) EventType {
	if code <= int(EventUnknown) || code >= int(eventTypeCount) {
		return EventUnknown
	}
	return EventType(code)
}

// EventSet is a bit mask over event types.
type EventSet uint32

// AllEvents has every valid event type set.
var AllEvents = NewEventSet(EventTypes()...)

// NewEventSet builds a set from the given event types. Invalid values are ignored.
func NewEventSet(events ...EventType) EventSet {
	var s EventSet
	for _, e := range events {
		s = s.With(e)
	}
	return s
}

// With returns s with e added.
func (s EventSet) With(e EventType) EventSet {
	if !e.Valid() {
		return s
	}
	return s | 1<<e
}

// Without returns s with e removed.
func (s EventSet) Without(e EventType) EventSet {
	return s &^ (1 << e)
}

// Has reports whether e is in s.
func (s EventSet) Has(e EventType) bool {
	return e.Valid() && s&(1<<e) != 0
}

// Intersect returns the events present in both sets.
func (s EventSet) Intersect(o EventSet) EventSet {
	return s & o
}

// Events lists the members of s in code order.
func (s EventSet) Events() []EventType {
	var out []EventType
	for e := EventUnknown + 1; e < eventTypeCount; e++ {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s EventSet) String() string {
	return fmt.Sprintf("%v", s.Events())
}
