package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s Storage, notifs ...Notification) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), notifs...))
}

func notif(to int64, event EventType, ref, course int64, bits ...Bit) Notification {
	var st Status
	for _, b := range bits {
		st = st.With(b)
	}
	return Notification{
		ID:        uuid.New(),
		Event:     event,
		ToUser:    to,
		Location:  Location{Course: course},
		SourceRef: ref,
		CreatedAt: testNow,
		Status:    st,
	}
}

func bitsOf(t *testing.T, s Storage, id uuid.UUID) uint8 {
	t.Helper()
	n, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return n.Status.Bits()
}

func TestManager_MarkReadIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	n := notif(1, EventForumReply, 100, 10, BitEmail)
	other := notif(2, EventForumReply, 100, 10, BitEmail)
	seed(t, storage, n, other)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkReadBySource(ctx, 1, EventForumReply, 100)
	m.MarkReadBySource(ctx, 1, EventForumReply, 100)

	assert.Equal(t, uint8(BitEmail|BitRead), bitsOf(t, storage, n.ID))
	assert.Equal(t, uint8(BitEmail), bitsOf(t, storage, other.ID))

	got, err := storage.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status.Derived())
}

func TestManager_MarkRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	mine := notif(1, EventMessage, 1, 10)
	theirs := notif(2, EventMessage, 2, 10)
	seed(t, storage, mine, theirs)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkRead(ctx, 1, mine.ID, theirs.ID)

	assert.Equal(t, uint8(BitRead), bitsOf(t, storage, mine.ID))
	assert.Zero(t, bitsOf(t, storage, theirs.ID), "ids of other users are ignored")

	m.MarkAllRead(ctx, 2)
	assert.Equal(t, uint8(BitRead), bitsOf(t, storage, theirs.ID))
}

func TestManager_MarkReadForCourse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	inCourse := notif(1, EventDocumentFile, 1, 10)
	otherCourse := notif(1, EventDocumentFile, 2, 11)
	otherType := notif(1, EventNotice, 3, 10)
	seed(t, storage, inCourse, otherCourse, otherType)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkReadForCourse(ctx, 1, EventDocumentFile, 10)

	assert.Equal(t, uint8(BitRead), bitsOf(t, storage, inCourse.ID))
	assert.Zero(t, bitsOf(t, storage, otherCourse.ID))
	assert.Zero(t, bitsOf(t, storage, otherType.ID))
}

func TestManager_MarkRemovedForCourse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	msg := notif(1, EventMessage, 1, 10, BitEmail)
	post := notif(1, EventForumPostCourse, 2, 10, BitEmail)
	file := notif(2, EventDocumentFile, 3, 10)
	elsewhere := notif(1, EventNotice, 4, 11)
	seed(t, storage, msg, post, file, elsewhere)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkRemovedForCourse(ctx, 10, EventMessage)

	assert.Equal(t, uint8(BitEmail), bitsOf(t, storage, msg.ID))
	assert.Equal(t, uint8(BitEmail|BitRemoved), bitsOf(t, storage, post.ID))
	assert.Equal(t, uint8(BitRemoved), bitsOf(t, storage, file.ID))
	assert.Zero(t, bitsOf(t, storage, elsewhere.ID))
}

func TestManager_MarkRemovedForCourseUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	leaver := notif(1, EventNotice, 1, 10)
	stayer := notif(2, EventNotice, 1, 10)
	seed(t, storage, leaver, stayer)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkRemovedForCourseUser(ctx, 10, 1, EventUnknown)

	assert.Equal(t, uint8(BitRemoved), bitsOf(t, storage, leaver.ID))
	assert.Zero(t, bitsOf(t, storage, stayer.ID))
}

func TestManager_MarkRemoved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	a := notif(1, EventSurvey, 7, 10, BitEmail)
	b := notif(2, EventSurvey, 7, 10, BitEmail, BitSent)
	c := notif(1, EventSurvey, 8, 10)
	seed(t, storage, a, b, c)

	m := newTestManager(storage, NewMemoryPreferenceStore())
	m.MarkRemoved(ctx, EventSurvey, 7)
	m.MarkRemovedForUser(ctx, 1, EventSurvey, 8)

	assert.Equal(t, uint8(BitEmail|BitRemoved), bitsOf(t, storage, a.ID))
	assert.Equal(t, uint8(BitEmail|BitSent|BitRemoved), bitsOf(t, storage, b.ID))
	assert.Equal(t, uint8(BitRemoved), bitsOf(t, storage, c.ID))

	got, err := storage.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, got.Status.Derived(), "sent stays sent")
}

func TestManager_MarkRemovedUnderPath(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	idx := NewPathIndex()
	idx.Put(10, 1, "week1/slides.pdf")
	idx.Put(10, 2, "week1/extra/notes.pdf")
	idx.Put(10, 3, "week10/slides.pdf")
	idx.Put(11, 4, "week1/slides.pdf")

	n1 := notif(1, EventDocumentFile, 1, 10)
	n2 := notif(2, EventDocumentFile, 2, 10)
	n3 := notif(1, EventDocumentFile, 3, 10)
	n4 := notif(1, EventDocumentFile, 4, 11)
	seed(t, storage, n1, n2, n3, n4)

	m := newTestManager(storage, NewMemoryPreferenceStore(), WithFileIndex(idx))
	m.MarkRemovedUnderPath(ctx, EventDocumentFile, 10, "/week1/")

	assert.Equal(t, uint8(BitRemoved), bitsOf(t, storage, n1.ID))
	assert.Equal(t, uint8(BitRemoved), bitsOf(t, storage, n2.ID))
	assert.Zero(t, bitsOf(t, storage, n3.ID))
	assert.Zero(t, bitsOf(t, storage, n4.ID))
}

func TestManager_LifecycleSwallowsErrors(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	storage.On("SetBits", mock.Anything, BitRead, mock.Anything).Return(int64(0), errors.New("db down"))
	storage.On("SourceRefs", mock.Anything, EventDocumentFile).Return([]int64(nil), errors.New("db down"))

	m := newTestManager(storage, NewMemoryPreferenceStore(), WithFileIndex(NewPathIndex()))
	assert.NotPanics(t, func() {
		m.MarkAllRead(context.Background(), 1)
		m.MarkRemovedUnderPath(context.Background(), EventDocumentFile, 1, "a")
	})
	storage.AssertExpectations(t)
}

func TestManager_LifecycleIgnoresInvalidInput(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	m := newTestManager(storage, NewMemoryPreferenceStore())
	ctx := context.Background()

	m.MarkRead(ctx, 1)
	m.MarkReadBySource(ctx, 1, EventUnknown, 1)
	m.MarkAllRead(ctx, 0)
	m.MarkRemoved(ctx, EventNotice)
	m.MarkRemovedForCourse(ctx, 0, EventMessage)
	m.MarkRemovedUnderPath(ctx, EventDocumentFile, 1, "a")

	storage.AssertNotCalled(t, "SetBits", mock.Anything, mock.Anything, mock.Anything)
}

func TestManager_FullLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := NewMemoryStorage()
	prefs := NewMemoryPreferenceStore()
	require.NoError(t, prefs.SetPreferences(ctx, Preferences{UserID: 1, Notify: AllEvents, Email: AllEvents}))

	now := testNow
	m := NewManager(storage, prefs, WithClock(func() time.Time { return now }))

	_, err := m.RecordEvent(ctx, Event{Type: EventNotice, SourceRef: 5, Location: Location{Course: 10}}, []int64{1})
	require.NoError(t, err)

	pending, err := storage.Pending(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	m.MarkReadBySource(ctx, 1, EventNotice, 5)
	pending, err = storage.Pending(ctx, 1, now)
	require.NoError(t, err)
	assert.Empty(t, pending, "read notifications are not emailed")
}
