package app

import (
	"sync"
	"time"
)

// Timer is a handle to a repeating callback. Cancel is idempotent.
type Timer interface {
	Cancel()
}

// Scheduler runs fn every interval until the returned Timer is cancelled.
type Scheduler interface {
	ScheduleRepeating(interval time.Duration, fn func()) Timer
}

// TickerScheduler is the wall-clock Scheduler backed by time.Ticker.
type TickerScheduler struct{}

func NewTickerScheduler() TickerScheduler {
	return TickerScheduler{}
}

func (TickerScheduler) ScheduleRepeating(interval time.Duration, fn func()) Timer {
	t := &tickerTimer{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// Cancel may race the tick; the engine discards ticks from released timers.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

// Cancel never waits for the tick goroutine, so it is safe to call from inside fn.
func (t *tickerTimer) Cancel() {
	t.once.Do(func() { close(t.done) })
}
