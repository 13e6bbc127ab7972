package memory

import (
	"sync"
	"time"

	"quiz-runner/internal/app"
)

// ManualScheduler is an app.Scheduler whose timers only fire when Tick is called.
// It makes countdowns deterministic in tests and demos.
type ManualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	owner     *ManualScheduler
	fn        func()
	cancelled bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) ScheduleRepeating(_ time.Duration, fn func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{owner: s, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Tick fires every timer that is active when Tick is called, once.
// Callbacks run without the scheduler lock so they may cancel or schedule timers.
func (s *ManualScheduler) Tick() {
	s.mu.Lock()
	due := make([]*manualTimer, 0, len(s.timers))
	for _, t := range s.timers {
		if !t.cancelled {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		if t.active() {
			t.fn()
		}
	}
}

// TickN calls Tick n times.
func (s *ManualScheduler) TickN(n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

// Active reports the number of timers not yet cancelled.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (t *manualTimer) active() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return !t.cancelled
}

func (t *manualTimer) Cancel() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	for i, other := range t.owner.timers {
		if other == t {
			t.owner.timers = append(t.owner.timers[:i], t.owner.timers[i+1:]...)
			break
		}
	}
}
