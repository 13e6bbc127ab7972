package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"quiz-runner/internal/domain"
)

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// RunRepository abstracts where live runs are kept (in-memory, Redis, etc).
type RunRepository interface {
	GetOrCreate(runID string, create func() *Driver) (*Driver, bool)
	Get(runID string) (*Driver, bool)
	DeleteIfFinished(runID string)
	// DeleteIdle drops runs detached before cutoff and returns how many were dropped.
	DeleteIdle(cutoff time.Time) int
}

// RunService creates and tracks quiz runs for presenters.
type RunService struct {
	runs       RunRepository
	questions  QuestionRepository
	bests      BestsStore
	scheduler  Scheduler
	cfg        domain.QuizConfig
	logger     *slog.Logger
	now        func() time.Time
	engineOpts []EngineOption

	// shared by every engine so concurrent runs cannot lower the stored bests
	bestsMu sync.Mutex
}

func NewRunService(runs RunRepository, questions QuestionRepository, bests BestsStore, scheduler Scheduler, cfg domain.QuizConfig, logger *slog.Logger, opts ...EngineOption) *RunService {
	return NewRunServiceWithClock(runs, questions, bests, scheduler, cfg, logger, time.Now, opts...)
}

// NewRunServiceWithClock is test-only for deterministic idle expiry.
func NewRunServiceWithClock(runs RunRepository, questions QuestionRepository, bests BestsStore, scheduler Scheduler, cfg domain.QuizConfig, logger *slog.Logger, now func() time.Time, opts ...EngineOption) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RunService{
		runs:      runs,
		questions: questions,
		bests:     bests,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
		now:       now,
	}
	s.engineOpts = append([]EngineOption{WithLogger(logger), WithBestsGuard(&s.bestsMu)}, opts...)
	return s
}

// Open starts a new run of setID under runID, or reattaches p to the run already using that id.
func (s *RunService) Open(ctx context.Context, setID, runID string, p Presenter) (*Driver, error) {
	if driver, ok := s.runs.Get(runID); ok {
		s.reattach(ctx, runID, driver, p)
		return driver, nil
	}

	set, err := s.questions.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, err
	}

	driver, created := s.runs.GetOrCreate(runID, func() *Driver {
		engine := NewEngine(set.Questions, s.cfg, s.bests, s.scheduler, s.engineOpts...)
		driver := NewDriver(engine, p, s.logger.With("run", runID))
		driver.now = s.now
		return driver
	})
	if !created {
		s.reattach(ctx, runID, driver, p)
		return driver, nil
	}
	s.logger.Info("run started", "run", runID, "set", setID, "questions", len(set.Questions))
	driver.Step(ctx)
	return driver, nil
}

func (s *RunService) reattach(ctx context.Context, runID string, driver *Driver, p Presenter) {
	s.logger.Info("run reattached", "run", runID)
	driver.Attach(p)
	// an idle sweep may have dropped the run between lookup and attach
	s.runs.GetOrCreate(runID, func() *Driver { return driver })
	driver.Refresh(ctx)
}

// Release detaches p from runID if p is still the attached presenter.
// Finished runs are dropped; others stay paused for a reconnect until ExpireIdle removes them.
func (s *RunService) Release(runID string, p Presenter) {
	driver, ok := s.runs.Get(runID)
	if !ok {
		return
	}
	if !driver.Detach(p) {
		s.logger.Debug("release skipped, presenter replaced", "run", runID)
		return
	}
	s.runs.DeleteIfFinished(runID)
}

// ExpireIdle drops runs that have had no presenter for longer than maxIdle.
func (s *RunService) ExpireIdle(maxIdle time.Duration) int {
	n := s.runs.DeleteIdle(s.now().Add(-maxIdle))
	if n > 0 {
		s.logger.Info("expired idle runs", "count", n, "max_idle", maxIdle)
	}
	return n
}

// RunJanitor calls ExpireIdle every interval until ctx is done.
func (s *RunService) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExpireIdle(maxIdle)
		}
	}
}

// Run looks up a live run.
func (s *RunService) Run(runID string) (*Driver, error) {
	driver, ok := s.runs.Get(runID)
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return driver, nil
}

func (s *RunService) Bests(ctx context.Context) (domain.Bests, error) {
	return s.bests.LoadBest(ctx)
}

func (s *RunService) ResetAllProgress(ctx context.Context) error {
	s.bestsMu.Lock()
	defer s.bestsMu.Unlock()
	return s.bests.ResetAllProgress(ctx)
}
