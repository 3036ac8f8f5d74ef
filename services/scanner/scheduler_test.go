package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSchedulerRunsImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	scheduler := NewScheduler(time.Hour, time.Millisecond)
	scheduler.Now = clock.Now

	var mu sync.Mutex
	runs := 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx, func(ctx context.Context) {
			mu.Lock()
			runs++
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs == 1
	}, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestSchedulerRunsWhenIntervalElapses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	scheduler := NewScheduler(time.Hour, time.Millisecond)
	scheduler.Now = clock.Now

	var mu sync.Mutex
	runs := 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx, func(ctx context.Context) {
			mu.Lock()
			runs++
			mu.Unlock()
		})
	}()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return runs
	}

	require.Eventually(t, func() bool { return count() == 1 }, time.Second, time.Millisecond)

	// ticks keep firing but the hour has not passed on the fake clock
	time.Sleep(time.Millisecond * 20)
	require.Equal(t, 1, count())

	clock.Advance(time.Minute * 59)
	time.Sleep(time.Millisecond * 20)
	require.Equal(t, 1, count())

	clock.Advance(time.Minute * 2)
	require.Eventually(t, func() bool { return count() == 2 }, time.Second, time.Millisecond)

	// the next due point is rescheduled from the second run
	time.Sleep(time.Millisecond * 20)
	require.Equal(t, 2, count())

	cancel()
	<-done
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	scheduler := NewScheduler(time.Hour, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx, func(ctx context.Context) {})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}
