package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

const lockKey = "digest"

// Locker guards a pass across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// Report summarizes one pass.
type Report struct {
	StartedAt     time.Time     `json:"started_at"`
	Cutoff        time.Time     `json:"cutoff"`
	Skipped       bool          `json:"skipped"`       // another process held the lock
	Recipients    int           `json:"recipients"`    // users with pending records
	Sent          int           `json:"sent"`          // emails delivered
	Notifications int           `json:"notifications"` // records marked sent
	Ignored       int           `json:"ignored"`       // users without a usable address
	Failed        int           `json:"failed"`        // users whose email failed; retried next pass
	Deferred      int           `json:"deferred"`      // users left for the next pass before the lock expired
	Duration      time.Duration `json:"duration"`
}

// Dispatcher batches pending notifications into one email per user.
type Dispatcher struct {
	storage    notifications.Storage
	stats      notifications.StatsStore
	directory  Directory
	sender     email.EmailSender
	summarizer notifications.Summarizer
	locker     Locker
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger

	phases *phaseMachine
	render *renderer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig replaces the default settings.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.cfg = cfg
	}
}

// WithLogger sets the logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLocker enables the cross-process lock.
func WithLocker(l Locker) Option {
	return func(d *Dispatcher) {
		d.locker = l
	}
}

// WithSummarizer adds content summaries to digest items.
func WithSummarizer(s notifications.Summarizer) Option {
	return func(d *Dispatcher) {
		d.summarizer = s
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher creates a digest dispatcher.
func NewDispatcher(
	storage notifications.Storage,
	stats notifications.StatsStore,
	directory Directory,
	sender email.EmailSender,
	opts ...Option,
) (*Dispatcher, error) {
	d := &Dispatcher{
		storage:   storage,
		stats:     stats,
		directory: directory,
		sender:    sender,
		cfg:       DefaultConfig(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	def := DefaultConfig()
	if d.cfg.SendTimeout <= 0 {
		d.cfg.SendTimeout = def.SendTimeout
	}
	if d.cfg.LockTTL <= 0 {
		d.cfg.LockTTL = def.LockTTL
	}
	if d.cfg.MinAge < 0 {
		d.cfg.MinAge = 0
	}
	if d.locker != nil && d.lockBudget() <= 0 {
		return nil, fmt.Errorf("%w: lock TTL %s leaves no time for a send timeout of %s",
			ErrInvalidConfig, d.cfg.LockTTL, d.cfg.SendTimeout)
	}

	r, err := newRenderer(d.cfg, directory, d.summarizer)
	if err != nil {
		return nil, err
	}
	d.render = r
	d.phases = newPhaseMachine(func(ctx context.Context, from, to Phase, s step) {
		d.logger.LogAttrs(ctx, slog.LevelDebug, "Digest phase changed",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
	})

	return d, nil
}

// lockBudget is how long a locked pass may keep starting deliveries: the last
// one must finish, send timeout included, with a tenth of the TTL to spare.
func (d *Dispatcher) lockBudget() time.Duration {
	return d.cfg.LockTTL - d.cfg.SendTimeout - d.cfg.LockTTL/10
}

// Phase returns the current phase of the dispatcher.
func (d *Dispatcher) Phase() Phase {
	return d.phases.Current()
}

// Run runs a pass for the scheduler. A pass already in progress is not an error.
func (d *Dispatcher) Run(ctx context.Context) error {
	_, err := d.RunPass(ctx)
	if errors.Is(err, ErrPassInProgress) {
		return nil
	}
	return err
}

// RunPass emails every user with eligible notifications once and marks the
// delivered notifications SENT. Failed deliveries leave their notifications
// untouched so the next pass retries them.
func (d *Dispatcher) RunPass(ctx context.Context) (Report, error) {
	if err := d.phases.Fire(ctx, stepStart, nil); err != nil {
		return Report{}, ErrPassInProgress
	}
	defer func() {
		if !d.phases.Is(PhaseIdle) {
			_ = d.phases.Fire(context.WithoutCancel(ctx), stepAbort, nil)
		}
	}()

	start := d.now()
	report := Report{StartedAt: start, Cutoff: start.Add(-d.cfg.MinAge)}

	var deadline time.Time
	if d.locker != nil {
		deadline = start.Add(d.lockBudget())
		unlock, ok, err := d.locker.TryLock(ctx, lockKey, d.cfg.LockTTL)
		if err != nil {
			return report, errors.Join(ErrLockUnavailable, err)
		}
		if !ok {
			report.Skipped = true
			d.logger.LogAttrs(ctx, slog.LevelInfo, "Digest pass skipped, another instance holds the lock")
			return report, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to release digest lock", logger.Error(err))
			}
		}()
	}

	users, err := d.storage.PendingRecipients(ctx, report.Cutoff)
	if err != nil {
		return report, fmt.Errorf("failed to select pending recipients: %w", err)
	}
	report.Recipients = len(users)
	if err := d.phases.Fire(ctx, stepSelected, nil); err != nil {
		return report, err
	}

	for i, userID := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !deadline.IsZero() && d.now().After(deadline) {
			report.Deferred = len(users) - i
			d.logger.LogAttrs(ctx, slog.LevelWarn, "Digest lock about to expire, deferring remaining recipients",
				logger.Count(report.Deferred))
			break
		}
		if err := d.deliver(ctx, userID, &report); err != nil {
			return report, err
		}
	}

	if err := d.phases.Fire(ctx, stepFinish, nil); err != nil {
		return report, err
	}
	report.Duration = d.now().Sub(start)

	d.logger.LogAttrs(ctx, slog.LevelInfo, "Digest pass finished",
		slog.Int("recipients", report.Recipients),
		slog.Int("sent", report.Sent),
		slog.Int("notifications", report.Notifications),
		slog.Int("ignored", report.Ignored),
		slog.Int("failed", report.Failed),
		slog.Int("deferred", report.Deferred),
		logger.Duration(report.Duration),
	)
	return report, nil
}

// deliver handles one user from batching back to batching. Only phase
// machine errors are returned; delivery problems are counted in report.
func (d *Dispatcher) deliver(ctx context.Context, userID int64, report *Report) error {
	batch, err := d.storage.Pending(ctx, userID, report.Cutoff)
	if err != nil {
		report.Failed++
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to load digest batch",
			logger.UserID(userID), logger.Error(err))
		return d.phases.Fire(ctx, stepSkip, nil)
	}
	if len(batch) == 0 {
		return d.phases.Fire(ctx, stepSkip, nil)
	}
	if err := d.phases.Fire(ctx, stepBatched, nil); err != nil {
		return err
	}

	rcpt, ok := d.recipient(ctx, userID, report)
	if !ok {
		return d.phases.Fire(ctx, stepSkip, nil)
	}

	if err := d.send(ctx, rcpt, batch); err != nil {
		report.Failed++
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to send digest",
			logger.UserID(userID), logger.Count(len(batch)), logger.Error(err))
		return d.phases.Fire(ctx, stepSkip, nil)
	}
	report.Sent++
	if err := d.phases.Fire(ctx, stepSent, nil); err != nil {
		return err
	}

	// The email is out: marking must not be cut short by cancellation.
	markCtx := context.WithoutCancel(ctx)
	ids := make([]uuid.UUID, len(batch))
	for i, n := range batch {
		ids[i] = n.ID
	}
	marked, err := d.storage.SetBits(markCtx, notifications.BitSent, notifications.Filter{ToUser: userID, IDs: ids})
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Digest sent but notifications not marked, they will be sent again",
			logger.UserID(userID), logger.Count(len(batch)), logger.Error(err))
	} else {
		report.Notifications += int(marked)
	}

	if err := d.stats.AddStats(markCtx, notifications.TallyStats(batch)...); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to update notification stats",
			logger.UserID(userID), logger.Error(err))
	}

	return d.phases.Fire(ctx, stepMarked, nil)
}

// recipient resolves a deliverable address for userID.
func (d *Dispatcher) recipient(ctx context.Context, userID int64, report *Report) (Recipient, bool) {
	rcpt, err := d.directory.Recipient(ctx, userID)
	switch {
	case errors.Is(err, ErrRecipientNotFound):
		report.Ignored++
		d.logger.LogAttrs(ctx, slog.LevelDebug, "No digest recipient", logger.UserID(userID))
		return rcpt, false
	case err != nil:
		report.Failed++
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to resolve digest recipient",
			logger.UserID(userID), logger.Error(err))
		return rcpt, false
	case !email.IsValidAddress(rcpt.Email):
		report.Ignored++
		d.logger.LogAttrs(ctx, slog.LevelDebug, "Digest recipient has no valid address", logger.UserID(userID))
		return rcpt, false
	case !email.DomainAllowed(rcpt.Email, d.cfg.AllowedDomains):
		report.Ignored++
		d.logger.LogAttrs(ctx, slog.LevelDebug, "Digest recipient domain not allowed", logger.UserID(userID))
		return rcpt, false
	}
	return rcpt, true
}

// send renders and mails one digest. The mailer call is bounded by
// SendTimeout even if the sender ignores its context.
func (d *Dispatcher) send(ctx context.Context, rcpt Recipient, batch []notifications.Notification) error {
	body, err := d.render.body(ctx, batch)
	if err != nil {
		return err
	}

	params := email.SendEmailParams{
		SendTo:   rcpt.Email,
		Subject:  d.render.subject(len(batch)),
		BodyText: body,
		Tag:      "digest",
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.sender.SendEmail(sendCtx, params) }()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return sendCtx.Err()
	}
}
