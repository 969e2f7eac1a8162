// Package storagetest holds behaviour tests shared by every implementation
// of the notification storage contracts.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Base is the reference time used by the suites. Stores must round-trip it
// with at least microsecond precision.
var Base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// Notif builds a notification for tests.
func Notif(to int64, event notifications.EventType, ref int64, created time.Time, bits ...notifications.Bit) notifications.Notification {
	var st notifications.Status
	for _, b := range bits {
		st = st.With(b)
	}
	return notifications.Notification{
		ID:        uuid.New(),
		Event:     event,
		ToUser:    to,
		FromUser:  99,
		Location:  notifications.Location{Institution: 1, Center: 2, Degree: 3, Course: 10},
		SourceRef: ref,
		CreatedAt: created,
		Status:    st,
	}
}

// RunStorage runs the Storage suite. newStore must return an empty store.
func RunStorage(t *testing.T, newStore func(t *testing.T) notifications.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		n := Notif(1, notifications.EventForumReply, 100, Base, notifications.BitEmail)
		require.NoError(t, s.Create(ctx, n))

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, n.Event, got.Event)
		assert.Equal(t, n.ToUser, got.ToUser)
		assert.Equal(t, n.FromUser, got.FromUser)
		assert.Equal(t, n.Location, got.Location)
		assert.Equal(t, n.SourceRef, got.SourceRef)
		assert.True(t, n.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, n.Status, got.Status)

		_, err = s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, notifications.ErrNotificationNotFound)
	})

	t.Run("list newest first and hides seen", func(t *testing.T) {
		s := newStore(t)
		older := Notif(1, notifications.EventMessage, 1, Base)
		newer := Notif(1, notifications.EventMessage, 2, Base.Add(time.Minute))
		read := Notif(1, notifications.EventMessage, 3, Base.Add(2*time.Minute), notifications.BitRead)
		removed := Notif(1, notifications.EventMessage, 4, Base.Add(3*time.Minute), notifications.BitRemoved)
		other := Notif(2, notifications.EventMessage, 5, Base)
		require.NoError(t, s.Create(ctx, older, newer, read, removed, other))

		unseen, err := s.List(ctx, 1, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{newer.ID, older.ID}, ids(unseen))

		all, err := s.List(ctx, 1, notifications.ListOptions{IncludeSeen: true})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{removed.ID, read.ID, newer.ID, older.ID}, ids(all))

		page, err := s.List(ctx, 1, notifications.ListOptions{IncludeSeen: true, Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{read.ID, newer.ID}, ids(page))

		since, err := s.List(ctx, 1, notifications.ListOptions{IncludeSeen: true, Since: Base.Add(time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{removed.ID, read.ID}, ids(since))

		none, err := s.List(ctx, 3, notifications.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("set bits is a monotonic or", func(t *testing.T) {
		s := newStore(t)
		n := Notif(1, notifications.EventForumReply, 100, Base, notifications.BitEmail)
		require.NoError(t, s.Create(ctx, n))

		for _, b := range []notifications.Bit{notifications.BitRead, notifications.BitRead, notifications.BitSent, notifications.BitEmail} {
			matched, err := s.SetBits(ctx, b, notifications.Filter{IDs: []uuid.UUID{n.ID}})
			require.NoError(t, err)
			assert.Equal(t, int64(1), matched)
		}

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, uint8(notifications.BitEmail|notifications.BitRead|notifications.BitSent), got.Status.Bits())
	})

	t.Run("concurrent set bits converge to the union", func(t *testing.T) {
		s := newStore(t)
		n := Notif(1, notifications.EventForumReply, 100, Base, notifications.BitEmail)
		require.NoError(t, s.Create(ctx, n))

		var wg sync.WaitGroup
		for _, b := range []notifications.Bit{notifications.BitSent, notifications.BitRead, notifications.BitRemoved} {
			for range 5 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.SetBits(ctx, b, notifications.Filter{IDs: []uuid.UUID{n.ID}})
					assert.NoError(t, err)
				}()
			}
		}
		wg.Wait()

		got, err := s.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, uint8(15), got.Status.Bits())
	})

	t.Run("set bits filter", func(t *testing.T) {
		s := newStore(t)
		msg := Notif(1, notifications.EventMessage, 1, Base)
		post := Notif(1, notifications.EventForumPostCourse, 2, Base)
		otherCourse := Notif(2, notifications.EventNotice, 3, Base)
		otherCourse.Location.Course = 11
		require.NoError(t, s.Create(ctx, msg, post, otherCourse))

		matched, err := s.SetBits(ctx, notifications.BitRemoved, notifications.Filter{
			Course:      10,
			ExceptEvent: notifications.EventMessage,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)

		assertBits(t, s, msg.ID, 0)
		assertBits(t, s, post.ID, notifications.BitRemoved)
		assertBits(t, s, otherCourse.ID, 0)

		matched, err = s.SetBits(ctx, notifications.BitRead, notifications.Filter{
			Events:     []notifications.EventType{notifications.EventNotice},
			SourceRefs: []int64{3, 4},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), matched)
		assertBits(t, s, otherCourse.ID, notifications.BitRead)

		_, err = s.SetBits(ctx, notifications.BitRead, notifications.Filter{})
		assert.ErrorIs(t, err, notifications.ErrEmptyFilter)
	})

	t.Run("pending respects eligibility", func(t *testing.T) {
		s := newStore(t)
		cutoff := Base
		eligible := Notif(1, notifications.EventForumReply, 1, Base.Add(-time.Minute), notifications.BitEmail)
		atCutoff := Notif(1, notifications.EventMessage, 2, Base, notifications.BitEmail)
		tooYoung := Notif(1, notifications.EventMessage, 3, Base.Add(time.Second), notifications.BitEmail)
		noEmail := Notif(1, notifications.EventMessage, 4, Base.Add(-time.Hour))
		read := Notif(1, notifications.EventMessage, 5, Base.Add(-time.Hour), notifications.BitEmail, notifications.BitRead)
		removed := Notif(2, notifications.EventMessage, 6, Base.Add(-time.Hour), notifications.BitEmail, notifications.BitRemoved)
		sent := Notif(2, notifications.EventMessage, 7, Base.Add(-time.Hour), notifications.BitEmail, notifications.BitSent)
		other := Notif(3, notifications.EventSurvey, 8, Base.Add(-time.Hour), notifications.BitEmail)
		require.NoError(t, s.Create(ctx, eligible, atCutoff, tooYoung, noEmail, read, removed, sent, other))

		users, err := s.PendingRecipients(ctx, cutoff)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 3}, users)

		batch, err := s.Pending(ctx, 1, cutoff)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{eligible.ID, atCutoff.ID}, ids(batch))

		batch, err = s.Pending(ctx, 2, cutoff)
		require.NoError(t, err)
		assert.Empty(t, batch)
	})

	t.Run("source refs skip removed", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx,
			Notif(1, notifications.EventDocumentFile, 30, Base),
			Notif(2, notifications.EventDocumentFile, 30, Base),
			Notif(1, notifications.EventDocumentFile, 20, Base),
			Notif(1, notifications.EventDocumentFile, 40, Base, notifications.BitRemoved),
			Notif(1, notifications.EventSharedFile, 50, Base),
		))

		refs, err := s.SourceRefs(ctx, notifications.EventDocumentFile)
		require.NoError(t, err)
		assert.Equal(t, []int64{20, 30}, refs)
	})

	t.Run("count unseen", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx,
			Notif(1, notifications.EventMessage, 1, Base),
			Notif(1, notifications.EventMessage, 2, Base.Add(time.Hour)),
			Notif(1, notifications.EventMessage, 3, Base.Add(time.Hour), notifications.BitRead),
			Notif(2, notifications.EventMessage, 4, Base.Add(time.Hour)),
		))

		count, err := s.CountUnseen(ctx, 1, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = s.CountUnseen(ctx, 1, Base)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("purge", func(t *testing.T) {
		s := newStore(t)
		ancientPending := Notif(1, notifications.EventMessage, 1, Base.Add(-40*24*time.Hour), notifications.BitEmail)
		oldPending := Notif(1, notifications.EventMessage, 2, Base.Add(-10*24*time.Hour), notifications.BitEmail)
		oldSent := Notif(1, notifications.EventMessage, 3, Base.Add(-10*24*time.Hour), notifications.BitEmail, notifications.BitSent)
		oldNoEmail := Notif(1, notifications.EventMessage, 4, Base.Add(-10*24*time.Hour))
		fresh := Notif(1, notifications.EventMessage, 5, Base, notifications.BitRead)
		require.NoError(t, s.Create(ctx, ancientPending, oldPending, oldSent, oldNoEmail, fresh))

		deleted, err := s.Purge(ctx, notifications.PurgeOptions{
			CreatedBefore:  Base.Add(-30 * 24 * time.Hour),
			ResolvedBefore: Base.Add(-7 * 24 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)

		all, err := s.List(ctx, 1, notifications.ListOptions{IncludeSeen: true})
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{oldPending.ID, fresh.ID}, ids(all))
	})
}

// RunPreferences runs the PreferenceStore suite.
func RunPreferences(t *testing.T, newStore func(t *testing.T) notifications.PreferenceStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing users have empty preferences", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Preferences(ctx, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, map[int64]notifications.Preferences{
			1: {UserID: 1},
			2: {UserID: 2},
		}, got)
	})

	t.Run("set replaces", func(t *testing.T) {
		s := newStore(t)
		first := notifications.Preferences{
			UserID: 1,
			Notify: notifications.AllEvents,
			Email:  notifications.NewEventSet(notifications.EventMessage),
		}
		require.NoError(t, s.SetPreferences(ctx, first))

		second := notifications.Preferences{
			UserID: 1,
			Notify: notifications.NewEventSet(notifications.EventForumReply),
		}
		require.NoError(t, s.SetPreferences(ctx, second))

		got, err := s.Preferences(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, second, got[1])
	})
}

// RunStats runs the StatsStore suite.
func RunStats(t *testing.T, newStore func(t *testing.T) notifications.StatsStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("add accumulates", func(t *testing.T) {
		s := newStore(t)
		reply := notifications.StatKey{Degree: 3, Course: 10, Event: notifications.EventForumReply}
		msg := notifications.StatKey{Degree: 3, Course: 11, Event: notifications.EventMessage}

		require.NoError(t, s.AddStats(ctx,
			notifications.StatCounter{StatKey: reply, NumEvents: 2, NumMails: 1},
			notifications.StatCounter{StatKey: msg, NumEvents: 1, NumMails: 1},
		))
		require.NoError(t, s.AddStats(ctx, notifications.StatCounter{StatKey: reply, NumEvents: 1, NumMails: 1}))

		all, err := s.Stats(ctx, notifications.StatsFilter{})
		require.NoError(t, err)
		assert.Equal(t, []notifications.StatCounter{
			{StatKey: reply, NumEvents: 3, NumMails: 2},
			{StatKey: msg, NumEvents: 1, NumMails: 1},
		}, all)

		course, err := s.Stats(ctx, notifications.StatsFilter{Course: 11})
		require.NoError(t, err)
		assert.Equal(t, []notifications.StatCounter{{StatKey: msg, NumEvents: 1, NumMails: 1}}, course)
	})
}

// RunDirectory runs the digest.DirectoryStore suite.
func RunDirectory(t *testing.T, newStore func(t *testing.T) digest.DirectoryStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing entries", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Recipient(ctx, 1)
		assert.ErrorIs(t, err, digest.ErrRecipientNotFound)
		_, err = s.ScopeName(ctx, notifications.ScopeCourse, 10)
		assert.ErrorIs(t, err, digest.ErrScopeNotFound)
	})

	t.Run("recipient upsert", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetRecipient(ctx, digest.Recipient{UserID: 1, Email: "a@uni.edu", Name: "Ann"}))
		require.NoError(t, s.SetRecipient(ctx, digest.Recipient{UserID: 1, Email: "ann@uni.edu", Name: "Ann Smith"}))

		got, err := s.Recipient(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, digest.Recipient{UserID: 1, Email: "ann@uni.edu", Name: "Ann Smith"}, got)
	})

	t.Run("scope names are keyed by kind", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetScopeName(ctx, notifications.ScopeCourse, 10, "Algebra I"))
		require.NoError(t, s.SetScopeName(ctx, notifications.ScopeForum, 10, "General"))
		require.NoError(t, s.SetScopeName(ctx, notifications.ScopeCourse, 10, "Algebra II"))

		course, err := s.ScopeName(ctx, notifications.ScopeCourse, 10)
		require.NoError(t, err)
		assert.Equal(t, "Algebra II", course)

		forum, err := s.ScopeName(ctx, notifications.ScopeForum, 10)
		require.NoError(t, err)
		assert.Equal(t, "General", forum)
	})
}

// RunFileIndex runs the notifications.FileIndexStore suite.
func RunFileIndex(t *testing.T, newStore func(t *testing.T) notifications.FileIndexStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown file is under no folder", func(t *testing.T) {
		s := newStore(t)
		ok, err := s.IsUnderPath(ctx, 10, 1, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("folder prefix matches whole segments", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetFilePath(ctx, 10, 1, "/docs/week1/notes.pdf"))
		require.NoError(t, s.SetFilePath(ctx, 10, 2, "docs-old/notes.pdf"))
		require.NoError(t, s.SetFilePath(ctx, 11, 1, "other/notes.pdf"))

		for _, tc := range []struct {
			container, ref int64
			prefix         string
			want           bool
		}{
			{10, 1, "docs", true},
			{10, 1, "/docs/week1/", true},
			{10, 1, "docs/week1/notes.pdf", true},
			{10, 1, "docs/week2", false},
			{10, 2, "docs", false},
			{11, 1, "docs", false},
		} {
			ok, err := s.IsUnderPath(ctx, tc.container, tc.ref, tc.prefix)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok, "container %d ref %d under %q", tc.container, tc.ref, tc.prefix)
		}
	})

	t.Run("moving a file replaces its path", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SetFilePath(ctx, 10, 1, "docs/a.pdf"))
		require.NoError(t, s.SetFilePath(ctx, 10, 1, "archive/a.pdf"))

		ok, err := s.IsUnderPath(ctx, 10, 1, "docs")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = s.IsUnderPath(ctx, 10, 1, "archive")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func ids(ns []notifications.Notification) []uuid.UUID {
	out := make([]uuid.UUID, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func assertBits(t *testing.T, s notifications.Storage, id uuid.UUID, want notifications.Bit) {
	t.Helper()
	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint8(want), got.Status.Bits())
}
