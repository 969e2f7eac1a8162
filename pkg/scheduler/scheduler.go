package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// TaskFunc is the body of a periodic task.
type TaskFunc func(ctx context.Context) error

// Scheduler runs registered tasks in-process on their schedules.
// A task never overlaps with itself: a run that is still going when the
// task becomes due again makes the scheduler skip that tick.
type Scheduler struct {
	tasks    map[string]*task
	mu       sync.Mutex
	wg       sync.WaitGroup
	interval time.Duration
	timeout  time.Duration
	shutdown time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type task struct {
	name       string
	schedule   Schedule
	fn         TaskFunc
	timeout    time.Duration
	runOnStart bool
	next       time.Time
	running    atomic.Bool
}

// New creates a scheduler with no tasks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		tasks:    make(map[string]*task),
		interval: 10 * time.Second,
		timeout:  10 * time.Minute,
		shutdown: 30 * time.Second,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTask registers a periodic task.
func (s *Scheduler) AddTask(name string, schedule Schedule, fn TaskFunc, opts ...TaskOption) error {
	if schedule == nil || fn == nil {
		return ErrInvalidSchedule
	}

	t := &task{
		name:     name,
		schedule: schedule,
		fn:       fn,
		timeout:  s.timeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.runOnStart {
		t.next = s.now()
	} else {
		t.next = schedule.Next(s.now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}
	s.tasks[name] = t

	s.logger.Info("Registered periodic task",
		logger.Task(name),
		slog.String("schedule", schedule.String()),
		slog.Time("next_run", t.next),
	)
	return nil
}

// Start checks for due tasks until ctx is cancelled, then waits up to the
// shutdown timeout for running tasks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	count := len(s.tasks)
	s.mu.Unlock()
	if count == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkTasks(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler shutting down")
			s.wait()
			return nil
		case <-ticker.C:
			s.checkTasks(ctx)
		}
	}
}

// RunNow runs a registered task synchronously, outside of its schedule.
// It shares the no-overlap guard with scheduled runs.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return ErrTaskNotFound
	}
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}
	defer t.running.Store(false)
	return s.run(ctx, t)
}

func (s *Scheduler) checkTasks(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if t.next.After(now) {
			continue
		}
		// Missed ticks are not replayed.
		t.next = t.schedule.Next(now)
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		if !t.running.CompareAndSwap(false, true) {
			s.logger.Debug("Skipping task still running", logger.Task(t.name))
			continue
		}
		s.wg.Add(1)
		go func(t *task) {
			defer s.wg.Done()
			defer t.running.Store(false)
			if err := s.run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("Periodic task failed", logger.Task(t.name), logger.Error(err))
			}
		}(t)
	}
}

func (s *Scheduler) run(ctx context.Context, t *task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()

	start := s.now()
	err = t.fn(ctx)
	s.logger.Debug("Periodic task finished",
		logger.Task(t.name),
		logger.Duration(s.now().Sub(start)),
		logger.Error(err),
	)
	return err
}

func (s *Scheduler) wait() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.shutdown):
		s.logger.Warn("Timed out waiting for running tasks")
	}
}
