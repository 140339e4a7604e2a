// Package refresh runs a task on a fixed period until it is stopped.
package refresh

import (
	"sync"
	"sync/atomic"
	"time"

	"drawpanel/pkg/logx"
)

// DefaultPeriod is the refresh interval used by drawing surfaces.
const DefaultPeriod = 250 * time.Millisecond

// Task is invoked once per tick with the tick time.
type Task func(now time.Time)

// Scheduler calls a Task every period on its own goroutine.
//
// Stop is deterministic: once it returns, the task is not running and will
// never run again. Stop must not be called from inside the task.
type Scheduler struct {
	period time.Duration
	task   Task

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// New returns a stopped scheduler. A non-positive period selects
// DefaultPeriod.
func New(period time.Duration, task Task) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{
		period: period,
		task:   task,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Period returns the tick interval.
func (s *Scheduler) Period() time.Duration { return s.period }

// Start launches the tick loop. Calling Start more than once, or after
// Stop, has no effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.started.Store(true)
		go s.loop()
	})
}

// Stop ends the tick loop and waits for it to exit. Safe to call more than
// once and before Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		// A scheduler that never started has no loop to close done.
		s.startOnce.Do(func() { close(s.done) })
	})
	<-s.done
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	if !s.started.Load() {
		return false
	}
	select {
	case <-s.done:
		return false
	case <-s.quit:
		return false
	default:
		return true
	}
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	logx.Logger().Debug("refresh loop started", "period", s.period)

	for {
		select {
		case <-s.quit:
			logx.Logger().Debug("refresh loop stopped")
			return
		case now := <-ticker.C:
			// Prefer quitting over a tick that raced with Stop.
			select {
			case <-s.quit:
				return
			default:
			}
			s.task(now)
		}
	}
}
