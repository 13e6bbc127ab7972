package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"quiz-runner/internal/domain"
)

// Presenter renders a run. ShowTick may be called from the timer goroutine,
// so implementations must be safe for concurrent use and must not call back into the Driver.
type Presenter interface {
	ShowQuestion(q domain.Question, index, total int, score domain.Score)
	ShowTick(remaining int)
	ShowFeedback(correct bool, q domain.Question, score domain.Score)
	ShowTimeout(q domain.Question, score domain.Score)
	ShowPaused(paused bool, remaining int)
	ShowSummary(summary domain.Summary)
}

// Driver runs the question loop on top of an Engine: show a question, count down,
// settle it by answer or timeout, advance, and finish with a summary.
type Driver struct {
	engine *Engine
	logger *slog.Logger
	now    func() time.Time

	presenter atomic.Pointer[presenterRef]

	mu         sync.Mutex
	seq        uint64 // bumped on every step; stale timeout deliveries carry an older value
	detachedAt time.Time
}

type presenterRef struct {
	Presenter
}

func NewDriver(engine *Engine, presenter Presenter, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{engine: engine, logger: logger, now: time.Now}
	d.Attach(presenter)
	return d
}

// Engine exposes the underlying engine for read-only accessors.
func (d *Driver) Engine() *Engine {
	return d.engine
}

// Attach routes all further output to p and clears any idle mark.
// Presenters are compared by Detach, so p must be a comparable value (usually a pointer).
func (d *Driver) Attach(p Presenter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachLocked(p)
	d.detachedAt = time.Time{}
}

// Detach silences output and pauses a running countdown so the run can be picked up later.
// It does nothing and returns false when p is no longer the attached presenter.
func (d *Driver) Detach(p Presenter) bool {
	if p == nil {
		p = NopPresenter{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current() != p {
		return false
	}
	d.attachLocked(nil)
	d.detachedAt = d.now()
	d.engine.Pause()
	return true
}

// IdleSince reports when the last presenter detached, or false while one is attached.
func (d *Driver) IdleSince() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detachedAt, !d.detachedAt.IsZero()
}

func (d *Driver) attachLocked(p Presenter) {
	if p == nil {
		p = NopPresenter{}
	}
	d.presenter.Store(&presenterRef{Presenter: p})
}

// Step shows the current question and starts its countdown, or the summary once the run is over.
func (d *Driver) Step(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stepLocked(ctx)
}

// Refresh re-renders the current state for a newly attached presenter without touching the countdown.
func (d *Driver) Refresh(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.current()
	q, ok := d.engine.Current()
	if !ok {
		p.ShowSummary(d.engine.Summary(ctx))
		return
	}
	index, total := d.engine.Position()
	p.ShowQuestion(q, index, total, d.engine.Score())
	p.ShowPaused(d.engine.IsPaused(), d.engine.Remaining())
}

// Answer settles the current question. It is accepted only while a countdown is live:
// if the timeout already fired, or the run is paused or finished, the answer is dropped.
func (d *Driver) Answer(ctx context.Context, value domain.Answer) (correct, accepted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.engine.StopTimer() {
		return false, false
	}
	q, ok := d.engine.Current()
	if !ok {
		return false, false
	}
	correct = d.engine.Answer(ctx, value)
	d.current().ShowFeedback(correct, q, d.engine.Score())
	d.engine.Next()
	d.stepLocked(ctx)
	return correct, true
}

func (d *Driver) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pauseLocked()
}

func (d *Driver) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumeLocked()
}

func (d *Driver) TogglePause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.engine.IsPaused() {
		d.resumeLocked()
		return
	}
	d.pauseLocked()
}

// Restart discards the current run and starts again from the first question.
func (d *Driver) Restart(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.restartLocked(ctx)
}

// ResetAll clears the persisted bests and restarts the run.
func (d *Driver) ResetAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.engine.ResetAllProgress(ctx); err != nil {
		return err
	}
	d.restartLocked(ctx)
	return nil
}

func (d *Driver) restartLocked(ctx context.Context) {
	d.engine.ResetRun()
	d.current().ShowPaused(false, 0)
	d.stepLocked(ctx)
}

func (d *Driver) pauseLocked() {
	d.engine.Pause()
	if d.engine.IsPaused() {
		d.current().ShowPaused(true, d.engine.Remaining())
	}
}

func (d *Driver) resumeLocked() {
	if !d.engine.IsPaused() {
		return
	}
	d.current().ShowPaused(false, d.engine.Remaining())
	d.engine.Resume(d.onTick, d.timeoutHandler(d.seq))
}

func (d *Driver) stepLocked(ctx context.Context) {
	d.seq++
	p := d.current()

	q, ok := d.engine.Current()
	if !ok {
		d.engine.StopTimer()
		p.ShowSummary(d.engine.Summary(ctx))
		return
	}
	index, total := d.engine.Position()
	p.ShowQuestion(q, index, total, d.engine.Score())
	d.engine.Start(d.onTick, d.timeoutHandler(d.seq))
}

func (d *Driver) onTick(remaining int) {
	d.current().ShowTick(remaining)
}

// timeoutHandler runs on the timer goroutine, outside any request context.
func (d *Driver) timeoutHandler(seq uint64) func() {
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.seq != seq {
			d.logger.Debug("dropping stale timeout", "seq", seq, "current", d.seq)
			return
		}
		q, ok := d.engine.Current()
		if !ok {
			return
		}
		d.engine.RecordTimeout()
		d.current().ShowTimeout(q, d.engine.Score())
		d.engine.Next()
		d.stepLocked(context.Background())
	}
}

func (d *Driver) current() Presenter {
	return d.presenter.Load().Presenter
}

// NopPresenter discards all output.
type NopPresenter struct{}

func (NopPresenter) ShowQuestion(domain.Question, int, int, domain.Score) {}
func (NopPresenter) ShowTick(int)                                         {}
func (NopPresenter) ShowFeedback(bool, domain.Question, domain.Score)     {}
func (NopPresenter) ShowTimeout(domain.Question, domain.Score)            {}
func (NopPresenter) ShowPaused(bool, int)                                 {}
func (NopPresenter) ShowSummary(domain.Summary)                           {}
