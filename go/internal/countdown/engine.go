package countdown

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidwatch/go/internal/schedule"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

// Engine keeps the view's countdown string current, ticking once per
// second. It owns exactly one schedule handle at a time, tied to the
// lifetime of the current auction detail: replaced detail restarts the
// ticker, cleared detail or a terminal countdown stops it. The ticker
// is independent of the detail poll and never waits on it.
type Engine struct {
	state *view.State
	sched *schedule.Scheduler

	mu     sync.Mutex
	handle *schedule.Handle
}

func NewEngine(state *view.State, sched *schedule.Scheduler) *Engine {
	return &Engine{
		state: state,
		sched: sched,
	}
}

// Bind subscribes the engine to detail changes. Call once during
// wiring, before polling starts.
func (e *Engine) Bind() {
	e.state.Subscribe(func(c view.Change) {
		if c == view.ChangeDetail {
			e.restart()
		}
	})
}

func (e *Engine) restart() {
	e.mu.Lock()
	old := e.handle
	e.handle = nil
	e.mu.Unlock()
	if old != nil {
		old.Stop()
	}

	if e.state.Detail() == nil {
		e.state.SetCountdown(UnknownDisplay)
		return
	}

	handle := e.sched.Repeat(time.Second, e.tick)
	e.mu.Lock()
	e.handle = handle
	e.mu.Unlock()
	log.Debug().Msg("countdown ticker restarted")
}

// tick recomputes the countdown. Returning false ends the ticker once
// the state is terminal; the next detail replacement starts a new one.
func (e *Engine) tick() bool {
	detail := e.state.Detail()
	text := Remaining(detail, e.sched.Clock().Now())
	e.state.SetCountdown(text)
	return detail != nil && text != FinishedDisplay
}

// Stop cancels the ticker, for view teardown.
func (e *Engine) Stop() {
	e.mu.Lock()
	old := e.handle
	e.handle = nil
	e.mu.Unlock()
	if old != nil {
		old.Stop()
	}
	e.state.SetCountdown(UnknownDisplay)
}
