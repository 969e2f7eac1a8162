// Package scheduler runs periodic in-process tasks such as the digest email
// pass and the retention purge.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.AddTask("digest", scheduler.EveryInterval(5*time.Minute), dispatcher.Run)
//	_ = s.AddTask("purge", scheduler.DailyAt(3, 0), purge)
//	err := s.Start(ctx) // blocks until ctx is cancelled
//
// Each task runs in its own goroutine with a timeout and panic recovery.
// A task never overlaps with itself.
package scheduler
