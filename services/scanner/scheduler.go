package scanner

import (
	"context"
	"time"

	"inventory-tracker/lib/timezone"
)

// Scheduler runs a job immediately and then whenever a fixed interval
// has elapsed, checked by a short polling tick. due jobs execute
// synchronously on the polling goroutine; a cycle is assumed to finish
// well within the interval, there is no overlap protection.
//
// Now is injectable so tests can drive the clock instead of sleeping.
type Scheduler struct {
	Interval time.Duration
	Tick     time.Duration
	Now      func() time.Time
}

func NewScheduler(interval, tick time.Duration) Scheduler {
	return Scheduler{
		Interval: interval,
		Tick:     tick,
		Now:      timezone.Now,
	}
}

// Run blocks until ctx is cancelled.
func (s Scheduler) Run(ctx context.Context, job func(context.Context)) {
	job(ctx)
	next := s.Now().Add(s.Interval)

	ticker := time.NewTicker(s.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Now().Before(next) {
				continue
			}
			job(ctx)
			next = s.Now().Add(s.Interval)
		}
	}
}
