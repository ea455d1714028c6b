package schedule

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler creates repeating task handles off a clockwork clock.
// Production wiring passes clockwork.NewRealClock(); tests drive a
// FakeClock so ticks happen on demand.
type Scheduler struct {
	clock clockwork.Clock
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

func (s *Scheduler) Clock() clockwork.Clock {
	return s.clock
}

// Handle is one cancellable repeating task. Each owner holds at most
// one live handle at a time and replaces it by stopping the old one.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Repeat runs fn immediately, then once per interval, in its own
// goroutine. fn returning false ends the task from the inside (a
// countdown reaching its terminal state, a fetch discovering its
// subject no longer exists). Stop ends it from the outside.
func (s *Scheduler) Repeat(interval time.Duration, fn func() bool) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		if !fn() {
			return
		}

		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.Chan():
				if !fn() {
					return
				}
			}
		}
	}()

	return h
}

// Every is Repeat without the immediate first run.
func (s *Scheduler) Every(interval time.Duration, fn func() bool) *Handle {
	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.Chan():
				if !fn() {
					return
				}
			}
		}
	}()

	return h
}

// Stop cancels the task and waits for its loop to exit, so a stopped
// handle is guaranteed to issue no further runs. Idempotent. Must not
// be called from inside the task's own fn; fn ends itself by returning
// false.
func (h *Handle) Stop() {
	h.once.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// Done reports task completion, however it ended.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
