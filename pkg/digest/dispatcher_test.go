package digest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/digest"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/notifications/storagetest"
)

// recordingSender captures sent emails and can fail or stall on demand.
type recordingSender struct {
	mu     sync.Mutex
	sent   []email.SendEmailParams
	err    error
	block  chan struct{}
	onSend func()
}

func (s *recordingSender) SendEmail(ctx context.Context, p email.SendEmailParams) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, p)
	if s.onSend != nil {
		s.onSend()
	}
	return nil
}

func (s *recordingSender) emails() []email.SendEmailParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]email.SendEmailParams(nil), s.sent...)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	ctx        context.Context
	clock      *clock
	storage    *notifications.MemoryStorage
	stats      *notifications.MemoryStatsStore
	directory  *digest.MemoryDirectory
	sender     *recordingSender
	manager    *notifications.Manager
	dispatcher *digest.Dispatcher
}

const (
	userU  int64 = 1
	author int64 = 2
	course int64 = 10
	degree int64 = 3
	thread int64 = 500
)

func newEnv(t *testing.T, opts ...digest.Option) *env {
	t.Helper()

	e := &env{
		ctx:       context.Background(),
		clock:     &clock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
		storage:   notifications.NewMemoryStorage(),
		stats:     notifications.NewMemoryStatsStore(),
		directory: digest.NewMemoryDirectory(),
		sender:    &recordingSender{},
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	prefs := notifications.NewMemoryPreferenceStore()
	require.NoError(t, prefs.SetPreferences(e.ctx, notifications.Preferences{
		UserID: userU,
		Notify: notifications.NewEventSet(notifications.EventForumReply),
		Email:  notifications.NewEventSet(notifications.EventForumReply),
	}))
	require.NoError(t, e.directory.SetRecipient(e.ctx, digest.Recipient{UserID: userU, Email: "u@uni.edu", Name: "U"}))
	require.NoError(t, e.directory.SetRecipient(e.ctx, digest.Recipient{UserID: author, Email: "a@uni.edu", Name: "Author"}))

	e.manager = notifications.NewManager(e.storage, prefs,
		notifications.WithClock(e.clock.Now),
		notifications.WithManagerLogger(quiet),
	)

	cfg := digest.DefaultConfig()
	cfg.MinAge = 60 * time.Second
	cfg.SendTimeout = 50 * time.Millisecond

	d, err := digest.NewDispatcher(e.storage, e.stats, e.directory, e.sender, append([]digest.Option{
		digest.WithConfig(cfg),
		digest.WithClock(e.clock.Now),
		digest.WithLogger(quiet),
	}, opts...)...)
	require.NoError(t, err)
	e.dispatcher = d
	return e
}

func (e *env) reply(t *testing.T) notifications.Notification {
	t.Helper()
	emails, err := e.manager.RecordEvent(e.ctx, notifications.Event{
		Type:      notifications.EventForumReply,
		FromUser:  author,
		SourceRef: thread,
		Location:  notifications.Location{Degree: degree, Course: course},
	}, []int64{userU})
	require.NoError(t, err)
	require.Equal(t, 1, emails)

	list, err := e.manager.List(e.ctx, userU, notifications.ListOptions{IncludeSeen: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func (e *env) status(t *testing.T, n notifications.Notification) notifications.Status {
	t.Helper()
	got, err := e.storage.Get(e.ctx, n.ID)
	require.NoError(t, err)
	return got.Status
}

func TestDispatcher_ReadBeforeDigestCancelsEmail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	n := e.reply(t)
	assert.Equal(t, notifications.StatusPending, e.status(t, n).Derived())

	e.clock.Advance(30 * time.Second)
	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Recipients, "record is too young")
	assert.Equal(t, notifications.StatusPending, e.status(t, n).Derived())

	e.manager.MarkReadBySource(e.ctx, userU, notifications.EventForumReply, thread)
	assert.Equal(t, uint8(notifications.BitEmail|notifications.BitRead), e.status(t, n).Bits())
	assert.Equal(t, notifications.StatusCancelled, e.status(t, n).Derived())

	e.clock.Advance(60 * time.Second)
	report, err = e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Sent)

	assert.Equal(t, uint8(notifications.BitEmail|notifications.BitRead), e.status(t, n).Bits())
	assert.Empty(t, e.sender.emails())

	stats, err := e.stats.Stats(e.ctx, notifications.StatsFilter{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestDispatcher_UnreadNotificationIsEmailed(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	n := e.reply(t)
	e.clock.Advance(90 * time.Second)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Recipients)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Notifications)
	assert.Equal(t, digest.PhaseIdle, e.dispatcher.Phase())

	assert.Equal(t, uint8(notifications.BitEmail|notifications.BitSent), e.status(t, n).Bits())
	assert.Equal(t, notifications.StatusSent, e.status(t, n).Derived())

	sent := e.sender.emails()
	require.Len(t, sent, 1)
	assert.Equal(t, "u@uni.edu", sent[0].SendTo)
	assert.Equal(t, "Campus: 1 new event", sent[0].Subject)
	assert.Contains(t, sent[0].BodyText, "There is a new event in Campus:")
	assert.Contains(t, sent[0].BodyText, "From: Author")

	stats, err := e.stats.Stats(e.ctx, notifications.StatsFilter{Course: course})
	require.NoError(t, err)
	assert.Equal(t, []notifications.StatCounter{{
		StatKey:   notifications.StatKey{Degree: degree, Course: course, Event: notifications.EventForumReply},
		NumEvents: 1,
		NumMails:  1,
	}}, stats)

	// A second pass has nothing left to send.
	e.clock.Advance(time.Hour)
	report, err = e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Recipients)
	assert.Len(t, e.sender.emails(), 1)
}

func TestDispatcher_BatchesAllPendingIntoOneEmail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	e.reply(t)
	e.clock.Advance(10 * time.Second)
	e.reply(t)
	e.clock.Advance(10 * time.Second)
	young := e.reply(t)
	e.clock.Advance(50 * time.Second)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 2, report.Notifications)

	sent := e.sender.emails()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].BodyText, "There are 2 new events in Campus:")
	assert.Equal(t, notifications.StatusPending, e.status(t, young).Derived())

	stats, err := e.stats.Stats(e.ctx, notifications.StatsFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].NumEvents)
	assert.Equal(t, int64(1), stats[0].NumMails)
}

func TestDispatcher_FailedSendTouchesNothing(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.sender.err = errors.New("smtp down")

	n := e.reply(t)
	e.clock.Advance(2 * time.Minute)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Sent)
	assert.Equal(t, uint8(notifications.BitEmail), e.status(t, n).Bits())

	stats, err := e.stats.Stats(e.ctx, notifications.StatsFilter{})
	require.NoError(t, err)
	assert.Empty(t, stats)

	// Retried on the next pass once the mailer recovers.
	e.sender.mu.Lock()
	e.sender.err = nil
	e.sender.mu.Unlock()
	report, err = e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, notifications.StatusSent, e.status(t, n).Derived())
}

func TestDispatcher_SendTimeoutCountsAsFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.sender.block = make(chan struct{})
	defer close(e.sender.block)

	n := e.reply(t)
	e.clock.Advance(2 * time.Minute)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, uint8(notifications.BitEmail), e.status(t, n).Bits())
}

func TestDispatcher_SkipsUnknownAndDisallowedRecipients(t *testing.T) {
	t.Parallel()

	cfg := digest.DefaultConfig()
	cfg.MinAge = time.Minute
	cfg.AllowedDomains = []string{"other.edu"}
	e := newEnv(t, digest.WithConfig(cfg))

	n := e.reply(t)
	e.clock.Advance(2 * time.Minute)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ignored)
	assert.Empty(t, e.sender.emails())
	assert.Equal(t, notifications.StatusPending, e.status(t, n).Derived(), "stays pending")

	cfg.AllowedDomains = nil
	d, err := digest.NewDispatcher(e.storage, e.stats, digest.NewMemoryDirectory(), e.sender,
		digest.WithConfig(cfg), digest.WithClock(e.clock.Now), digest.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	report, err = d.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ignored, "no directory entry")
	assert.Empty(t, e.sender.emails())
}

func TestDispatcher_SingleFlight(t *testing.T) {
	t.Parallel()

	cfg := digest.DefaultConfig()
	cfg.MinAge = time.Minute
	cfg.SendTimeout = 5 * time.Second
	e := newEnv(t, digest.WithConfig(cfg))
	e.sender.block = make(chan struct{})

	e.reply(t)
	e.clock.Advance(2 * time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := e.dispatcher.RunPass(e.ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return e.dispatcher.Phase() == digest.PhaseSend }, time.Second, time.Millisecond)

	_, err := e.dispatcher.RunPass(e.ctx)
	assert.ErrorIs(t, err, digest.ErrPassInProgress)
	assert.NoError(t, e.dispatcher.Run(e.ctx), "scheduler runs ignore overlap")

	close(e.sender.block)
	require.NoError(t, <-done)
	assert.Equal(t, digest.PhaseIdle, e.dispatcher.Phase())
}

type stubLocker struct {
	ok       bool
	err      error
	released atomic.Int32
}

func (l *stubLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil || !l.ok {
		return nil, false, l.err
	}
	return func(context.Context) error {
		l.released.Add(1)
		return nil
	}, true, nil
}

func TestDispatcher_Locker(t *testing.T) {
	t.Parallel()

	t.Run("held elsewhere", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, digest.WithLocker(&stubLocker{ok: false}))
		e.reply(t)
		e.clock.Advance(2 * time.Minute)

		report, err := e.dispatcher.RunPass(e.ctx)
		require.NoError(t, err)
		assert.True(t, report.Skipped)
		assert.Empty(t, e.sender.emails())
		assert.Equal(t, digest.PhaseIdle, e.dispatcher.Phase())
	})

	t.Run("acquired and released", func(t *testing.T) {
		t.Parallel()
		l := &stubLocker{ok: true}
		e := newEnv(t, digest.WithLocker(l))
		e.reply(t)
		e.clock.Advance(2 * time.Minute)

		report, err := e.dispatcher.RunPass(e.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent)
		assert.Equal(t, int32(1), l.released.Load())
	})

	t.Run("lock backend down", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t, digest.WithLocker(&stubLocker{err: errors.New("redis down")}))
		_, err := e.dispatcher.RunPass(e.ctx)
		assert.ErrorIs(t, err, digest.ErrLockUnavailable)
		assert.Equal(t, digest.PhaseIdle, e.dispatcher.Phase())
	})
}

func TestDispatcher_CancelledContext(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.reply(t)
	e.clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(e.ctx)
	cancel()
	_, err := e.dispatcher.RunPass(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, digest.PhaseIdle, e.dispatcher.Phase())
	assert.Empty(t, e.sender.emails())
}

func TestDispatcher_StopsBeforeLockExpires(t *testing.T) {
	t.Parallel()

	cfg := digest.DefaultConfig()
	cfg.MinAge = time.Minute
	cfg.SendTimeout = time.Second
	cfg.LockTTL = time.Minute
	l := &stubLocker{ok: true}
	e := newEnv(t, digest.WithConfig(cfg), digest.WithLocker(l))

	first := e.reply(t)
	second := storagetest.Notif(author, notifications.EventForumReply, thread, e.clock.Now(), notifications.BitEmail)
	require.NoError(t, e.storage.Create(e.ctx, second))
	e.clock.Advance(2 * time.Minute)

	// Every delivery takes longer than the whole lock.
	e.sender.onSend = func() { e.clock.Advance(2 * time.Minute) }

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, notifications.StatusSent, e.status(t, first).Derived())
	assert.Equal(t, notifications.StatusPending, e.status(t, second).Derived())
	assert.Equal(t, int32(1), l.released.Load())

	report, err = e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Zero(t, report.Deferred)
	assert.Equal(t, notifications.StatusSent, e.status(t, second).Derived())

	sent := e.sender.emails()
	require.Len(t, sent, 2)
	assert.Equal(t, "a@uni.edu", sent[1].SendTo)
}

func TestNewDispatcher_LockTTLTooShort(t *testing.T) {
	t.Parallel()

	cfg := digest.DefaultConfig()
	cfg.LockTTL = 10 * time.Second
	cfg.SendTimeout = 30 * time.Second

	_, err := digest.NewDispatcher(notifications.NewMemoryStorage(), notifications.NewMemoryStatsStore(),
		digest.NewMemoryDirectory(), &recordingSender{},
		digest.WithConfig(cfg), digest.WithLocker(&stubLocker{ok: true}))
	assert.ErrorIs(t, err, digest.ErrInvalidConfig)

	_, err = digest.NewDispatcher(notifications.NewMemoryStorage(), notifications.NewMemoryStatsStore(),
		digest.NewMemoryDirectory(), &recordingSender{}, digest.WithConfig(cfg))
	assert.NoError(t, err, "the budget only matters with a lock")
}

// threadSummaries summarizes forum threads by reference.
type threadSummaries map[int64]string

func (s threadSummaries) Summarize(_ context.Context, _ notifications.EventType, ref int64) (notifications.Summary, error) {
	short, ok := s[ref]
	if !ok {
		return notifications.Summary{}, errors.New("thread not found")
	}
	return notifications.Summary{Short: short}, nil
}

func TestDispatcher_WithSummarizer(t *testing.T) {
	t.Parallel()
	e := newEnv(t, digest.WithSummarizer(threadSummaries{thread: "Exam dates moved"}))

	e.reply(t)
	missing := storagetest.Notif(userU, notifications.EventForumReply, thread+1, e.clock.Now(), notifications.BitEmail)
	require.NoError(t, e.storage.Create(e.ctx, missing))
	e.clock.Advance(2 * time.Minute)

	report, err := e.dispatcher.RunPass(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Notifications)

	sent := e.sender.emails()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].BodyText, "Exam dates moved")
	assert.NotContains(t, sent[0].BodyText, notifications.UnavailableSummary.Short, "failed summaries are left out")
}
