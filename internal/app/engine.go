package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-runner/internal/domain"
)

// BestsStore persists the all-time best score and streak.
// Missing or corrupt values load as zero; errors are reserved for an unreachable backend.
type BestsStore interface {
	LoadBest(ctx context.Context) (domain.Bests, error)
	SaveBest(ctx context.Context, score, streak int) error
	ResetAllProgress(ctx context.Context) error
}

const defaultTickInterval = time.Second

// EngineOption customises an Engine at construction.
type EngineOption func(*Engine)

// WithLogger sets the logger used for degraded persistence paths.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRand makes shuffling deterministic in tests.
func WithRand(rnd *rand.Rand) EngineOption {
	return func(e *Engine) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

// WithTickInterval overrides the one-second countdown step.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithBestsGuard serializes the bests read-compare-write with every other engine holding the same lock.
// Engines that share a BestsStore must share a guard or a concurrent update can lower the stored values.
func WithBestsGuard(guard sync.Locker) EngineOption {
	return func(e *Engine) {
		if guard != nil {
			e.bestsGuard = guard
		}
	}
}

// Engine owns the state of a single quiz run: position, countdown, score and missed questions.
// All methods are safe for concurrent use; timer callbacks serialize with direct calls on mu.
// No method panics or returns an error: out-of-order calls degrade to no-ops.
type Engine struct {
	cfg       domain.QuizConfig
	bests     BestsStore
	scheduler Scheduler
	interval  time.Duration
	logger    *slog.Logger
	rnd       *rand.Rand

	// taken after mu, never before
	bestsGuard sync.Locker

	mu         sync.Mutex
	questions  []domain.Question
	index      int
	remaining  int
	timer      Timer
	generation uint64
	paused     bool
	score      domain.Score
	missed     []domain.MissedEntry
}

func NewEngine(questions []domain.Question, cfg domain.QuizConfig, bests BestsStore, scheduler Scheduler, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:        cfg,
		bests:      bests,
		scheduler:  scheduler,
		interval:   defaultTickInterval,
		logger:     slog.Default(),
		bestsGuard: &sync.Mutex{},
		questions:  append([]domain.Question(nil), questions...),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Shuffle {
		e.shuffleLocked()
	}
	return e
}

// Current returns the question at the current position, or false once the run is finished.
func (e *Engine) Current() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentLocked()
}

func (e *Engine) Score() domain.Score {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

func (e *Engine) IsFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index >= len(e.questions)
}

func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Remaining is the number of seconds left on the active or paused countdown.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

// Position returns the 0-based index and the number of questions in the run.
func (e *Engine) Position() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index, len(e.questions)
}

// Start begins the countdown for the current question. onTick receives the full duration
// immediately, then every decrement; onTimeout fires once when the countdown reaches zero.
func (e *Engine) Start(onTick func(remaining int), onTimeout func()) {
	e.mu.Lock()
	e.stopTimerLocked()
	e.paused = false
	q, ok := e.currentLocked()
	if !ok {
		e.mu.Unlock()
		return
	}
	e.remaining = e.durationFor(q)
	remaining := e.remaining
	ready := e.scheduleLocked(onTick, onTimeout)
	e.mu.Unlock()

	onTick(remaining)
	close(ready)
}

// StopTimer cancels the active countdown, if any, and reports whether one was cancelled.
func (e *Engine) StopTimer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopTimerLocked()
}

// Answer scores value against the current question and updates the persisted bests.
// It neither stops the countdown nor advances; callers do that explicitly.
func (e *Engine) Answer(ctx context.Context, value domain.Answer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.currentLocked()
	if !ok {
		return false
	}

	correct := isCorrect(q, value)
	e.score.Total++
	if correct {
		e.score.Correct++
		e.score.Streak++
		if e.score.Streak > e.score.BestStreak {
			e.score.BestStreak = e.score.Streak
		}
	} else {
		e.score.Streak = 0
		e.missed = append(e.missed, missedEntry(q, formatYourAnswer(q, value)))
	}

	e.updateBestsLocked(ctx)
	return correct
}

// Next advances to the following question and reports whether the run is still unfinished.
func (e *Engine) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index++
	return e.index < len(e.questions)
}

// RecordTimeout counts the current question as missed with no answer.
// Persisted bests are left alone; only Answer updates them.
func (e *Engine) RecordTimeout() {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.currentLocked()
	if !ok {
		return
	}
	e.score.Total++
	e.score.Streak = 0
	e.missed = append(e.missed, missedEntry(q, noAnswer))
}

// Pause freezes the running countdown.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer == nil || e.paused {
		return
	}
	e.stopTimerLocked()
	e.paused = true
}

// Resume continues a paused countdown from the frozen remaining value.
func (e *Engine) Resume(onTick func(remaining int), onTimeout func()) {
	e.mu.Lock()
	if !e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = false
	e.stopTimerLocked()
	remaining := e.remaining
	ready := e.scheduleLocked(onTick, onTimeout)
	e.mu.Unlock()

	onTick(remaining)
	close(ready)
}

// ResetAllProgress clears the persisted bests under the bests guard.
func (e *Engine) ResetAllProgress(ctx context.Context) error {
	if e.bests == nil {
		return nil
	}
	e.bestsGuard.Lock()
	defer e.bestsGuard.Unlock()
	return e.bests.ResetAllProgress(ctx)
}

// ResetRun returns the engine to the first question with fresh counters.
func (e *Engine) ResetRun() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopTimerLocked()
	e.paused = false
	e.remaining = 0
	e.index = 0
	e.score = domain.Score{}
	e.missed = nil
	if e.cfg.Shuffle {
		e.shuffleLocked()
	}
}

// Summary returns a detached copy of the run result together with the persisted bests.
func (e *Engine) Summary(ctx context.Context) domain.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	missed := make([]domain.MissedEntry, len(e.missed))
	copy(missed, e.missed)

	var bests domain.Bests
	if e.bests != nil {
		loaded, err := e.bests.LoadBest(ctx)
		if err != nil {
			e.logger.Warn("load bests for summary", "err", err)
		} else {
			bests = loaded
		}
	}
	return domain.Summary{Score: e.score, Missed: missed, Bests: bests}
}

func (e *Engine) currentLocked() (domain.Question, bool) {
	if e.index < 0 || e.index >= len(e.questions) {
		return domain.Question{}, false
	}
	return e.questions[e.index], true
}

func (e *Engine) durationFor(q domain.Question) int {
	if q.Seconds > 0 {
		return q.Seconds
	}
	return max(1, e.cfg.PerQuestionDefaultSeconds)
}

// scheduleLocked acquires a new timer; any previous timer must already be released.
// Ticks wait until the returned channel is closed, which the caller does after
// delivering the initial onTick, so no decrement can overtake it.
func (e *Engine) scheduleLocked(onTick func(int), onTimeout func()) chan struct{} {
	e.generation++
	gen := e.generation
	ready := make(chan struct{})
	e.timer = e.scheduler.ScheduleRepeating(e.interval, func() {
		<-ready
		e.tick(gen, onTick, onTimeout)
	})
	return ready
}

func (e *Engine) tick(gen uint64, onTick func(int), onTimeout func()) {
	e.mu.Lock()
	if e.timer == nil || e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.remaining--
	remaining := e.remaining
	expired := remaining <= 0
	if expired {
		e.stopTimerLocked()
	}
	e.mu.Unlock()

	onTick(remaining)
	if expired {
		onTimeout()
	}
}

func (e *Engine) stopTimerLocked() bool {
	if e.timer == nil {
		return false
	}
	e.timer.Cancel()
	e.timer = nil
	return true
}

// updateBestsLocked reads the bests once and writes the pairwise maxima at most once.
// A failed read skips the write so persisted values never decrease.
func (e *Engine) updateBestsLocked(ctx context.Context) {
	if e.bests == nil {
		return
	}
	e.bestsGuard.Lock()
	defer e.bestsGuard.Unlock()

	bests, err := e.bests.LoadBest(ctx)
	if err != nil {
		e.logger.Warn("load bests, skipping update", "err", err)
		return
	}
	if e.score.Correct <= bests.BestScore && e.score.BestStreak <= bests.BestStreak {
		return
	}
	score := max(bests.BestScore, e.score.Correct)
	streak := max(bests.BestStreak, e.score.BestStreak)
	if err := e.bests.SaveBest(ctx, score, streak); err != nil {
		e.logger.Warn("save bests", "err", err, "score", score, "streak", streak)
	}
}

func (e *Engine) shuffleLocked() {
	e.rnd.Shuffle(len(e.questions), func(i, j int) {
		e.questions[i], e.questions[j] = e.questions[j], e.questions[i]
	})
}
