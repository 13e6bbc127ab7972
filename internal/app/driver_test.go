package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
)

func TestDriverAnswersThroughToSummary(t *testing.T) {
	ctx := context.Background()
	driver, _, p := newTestDriver(textQuestion("q1", 5, 1, "a", "b"), boolQuestion("q2", 5, false))

	driver.Step(ctx)
	assert.Equal(t, []string{"question:q1:0/2", "tick:5"}, p.drain())

	correct, accepted := driver.Answer(ctx, domain.Choice(1))
	assert.True(t, accepted)
	assert.True(t, correct)
	assert.Equal(t, []string{"feedback:q1:true", "question:q2:1/2", "tick:5"}, p.drain())

	correct, accepted = driver.Answer(ctx, domain.TrueFalse(true))
	assert.True(t, accepted)
	assert.False(t, correct)
	assert.Equal(t, []string{"feedback:q2:false", "summary:1/2"}, p.drain())

	summary := p.lastSummary()
	require.Len(t, summary.Missed, 1)
	assert.Equal(t, "True", summary.Missed[0].YourAnswer)
	assert.Equal(t, domain.Bests{BestScore: 1, BestStreak: 1}, summary.Bests)

	_, accepted = driver.Answer(ctx, domain.TrueFalse(false))
	assert.False(t, accepted, "answers after the run are dropped")
}

func TestDriverTimeoutRecordsMissAndAdvances(t *testing.T) {
	ctx := context.Background()
	driver, sched, p := newTestDriver(textQuestion("q1", 2, 0, "a", "b"), boolQuestion("q2", 3, true))

	driver.Step(ctx)
	sched.TickN(2)
	assert.Equal(t, []string{"question:q1:0/2", "tick:2", "tick:1", "tick:0", "timeout:q1", "question:q2:1/2", "tick:3"}, p.drain())

	score := driver.Engine().Score()
	assert.Equal(t, domain.Score{Total: 1}, score)

	sched.TickN(3)
	assert.Equal(t, []string{"tick:2", "tick:1", "tick:0", "timeout:q2", "summary:0/2"}, p.drain())
	summary := p.lastSummary()
	require.Len(t, summary.Missed, 2)
	assert.Equal(t, "(no answer)", summary.Missed[1].YourAnswer)
	assert.Zero(t, sched.Active(), "no timer left after the summary")
}

func TestDriverDropsAnswerWhilePaused(t *testing.T) {
	ctx := context.Background()
	driver, sched, p := newTestDriver(boolQuestion("q1", 4, true))

	driver.Step(ctx)
	sched.Tick()
	driver.TogglePause()
	p.drain()

	_, accepted := driver.Answer(ctx, domain.TrueFalse(true))
	assert.False(t, accepted)
	assert.Equal(t, domain.Score{}, driver.Engine().Score())

	driver.TogglePause()
	assert.Equal(t, []string{"paused:false:3", "tick:3"}, p.drain())

	correct, accepted := driver.Answer(ctx, domain.TrueFalse(true))
	assert.True(t, accepted)
	assert.True(t, correct)
}

func TestDriverResumedCountdownTimesOut(t *testing.T) {
	ctx := context.Background()
	driver, sched, p := newTestDriver(boolQuestion("q1", 2, true))

	driver.Step(ctx)
	driver.Pause()
	assert.Equal(t, []string{"question:q1:0/1", "tick:2", "paused:true:2"}, p.drain())

	driver.Resume()
	sched.TickN(2)
	assert.Equal(t, []string{"paused:false:2", "tick:2", "tick:1", "tick:0", "timeout:q1", "summary:0/1"}, p.drain())
	assert.Equal(t, domain.Score{Total: 1}, driver.Engine().Score())
}

func TestDriverRestartAndResetAll(t *testing.T) {
	ctx := context.Background()
	bests := memory.NewBestsStore()
	sched := memory.NewManualScheduler()
	engine := app.NewEngine([]domain.Question{boolQuestion("q1", 5, true)}, domain.QuizConfig{PerQuestionDefaultSeconds: 5}, bests, sched)
	p := &recordingPresenter{}
	driver := app.NewDriver(engine, p, nil)

	driver.Step(ctx)
	driver.Answer(ctx, domain.TrueFalse(true))
	stored, _ := bests.LoadBest(ctx)
	assert.Equal(t, domain.Bests{BestScore: 1, BestStreak: 1}, stored)
	p.drain()

	driver.Restart(ctx)
	assert.Equal(t, []string{"paused:false:0", "question:q1:0/1", "tick:5"}, p.drain())
	assert.Equal(t, domain.Score{}, engine.Score())

	require.NoError(t, driver.ResetAll(ctx))
	stored, _ = bests.LoadBest(ctx)
	assert.Equal(t, domain.Bests{}, stored)
	assert.Equal(t, 1, sched.Active())
}

func TestDriverDetachPausesAndRefreshReplaysState(t *testing.T) {
	ctx := context.Background()
	driver, sched, first := newTestDriver(boolQuestion("q1", 9, true), boolQuestion("q2", 9, true))

	driver.Step(ctx)
	sched.TickN(2)
	assert.True(t, driver.Detach(first))
	sched.TickN(3)
	assert.True(t, driver.Engine().IsPaused())
	assert.Equal(t, []string{"question:q1:0/2", "tick:9", "tick:8", "tick:7"}, first.drain())

	second := &recordingPresenter{}
	driver.Attach(second)
	driver.Refresh(ctx)
	assert.Equal(t, []string{"question:q1:0/2", "paused:true:7"}, second.drain())

	driver.Resume()
	assert.Equal(t, []string{"paused:false:7", "tick:7"}, second.drain())
	assert.Empty(t, first.drain())
}

func TestRunServiceOpenAndRelease(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	sched := memory.NewManualScheduler()
	loader := memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		"set-1": {ID: "set-1", Questions: []domain.Question{boolQuestion("q1", 5, true)}},
	})
	service := app.NewRunService(runs, memory.NewQuestionRepository(loader, 0), memory.NewBestsStore(), sched,
		domain.QuizConfig{PerQuestionDefaultSeconds: 10}, nil)

	_, err := service.Open(ctx, "missing", "run-x", &recordingPresenter{})
	assert.ErrorIs(t, err, domain.ErrQuestionSetNotFound)

	p := &recordingPresenter{}
	driver, err := service.Open(ctx, "set-1", "run-1", p)
	require.NoError(t, err)
	assert.Equal(t, []string{"question:q1:0/1", "tick:5"}, p.drain())

	service.Release("run-1", p)
	assert.Equal(t, 1, runs.Len(), "unfinished runs survive a disconnect")
	assert.True(t, driver.Engine().IsPaused())

	again := &recordingPresenter{}
	reopened, err := service.Open(ctx, "set-1", "run-1", again)
	require.NoError(t, err)
	assert.Same(t, driver, reopened)
	assert.Equal(t, []string{"question:q1:0/1", "paused:true:5"}, again.drain())

	reopened.Resume()
	_, accepted := reopened.Answer(ctx, domain.TrueFalse(true))
	require.True(t, accepted)
	service.Release("run-1", again)
	assert.Zero(t, runs.Len())

	_, err = service.Run("run-1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	bests, err := service.Bests(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Bests{BestScore: 1, BestStreak: 1}, bests)
	require.NoError(t, service.ResetAllProgress(ctx))
	bests, _ = service.Bests(ctx)
	assert.Equal(t, domain.Bests{}, bests)
}

func TestDriverDetachIgnoresReplacedPresenter(t *testing.T) {
	ctx := context.Background()
	driver, sched, first := newTestDriver(boolQuestion("q1", 9, true))

	driver.Step(ctx)
	second := &recordingPresenter{}
	driver.Attach(second)
	first.drain()

	assert.False(t, driver.Detach(first), "first socket no longer owns the run")
	sched.Tick()
	assert.False(t, driver.Engine().IsPaused())
	assert.Equal(t, []string{"tick:8"}, second.drain())
	_, idle := driver.IdleSince()
	assert.False(t, idle)

	assert.True(t, driver.Detach(second))
	assert.True(t, driver.Engine().IsPaused())
	_, idle = driver.IdleSince()
	assert.True(t, idle)
}

func TestRunServiceReleaseKeepsRunForOtherSocket(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	sched := memory.NewManualScheduler()
	service := newTestService(runs, sched, time.Now)

	first := &recordingPresenter{}
	driver, err := service.Open(ctx, "set-1", "shared", first)
	require.NoError(t, err)
	second := &recordingPresenter{}
	_, err = service.Open(ctx, "set-1", "shared", second)
	require.NoError(t, err)
	second.drain()

	service.Release("shared", first)
	assert.False(t, driver.Engine().IsPaused())
	sched.Tick()
	assert.Equal(t, []string{"tick:4"}, second.drain())
	assert.Equal(t, []string{"question:q1:0/2", "tick:5"}, first.drain(), "nothing after the second socket took over")

	_, accepted := driver.Answer(ctx, domain.TrueFalse(true))
	assert.True(t, accepted)
}

func TestRunServiceExpiresIdleRuns(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	service := newTestService(runs, memory.NewManualScheduler(), func() time.Time { return now })

	for i := 0; i < 1000; i++ {
		runID := fmt.Sprintf("run-%d", i)
		p := &recordingPresenter{}
		_, err := service.Open(ctx, "set-1", runID, p)
		require.NoError(t, err)
		service.Release(runID, p)
	}
	connected := &recordingPresenter{}
	_, err := service.Open(ctx, "set-1", "connected", connected)
	require.NoError(t, err)
	assert.Equal(t, 1001, runs.Len())

	now = now.Add(5 * time.Minute)
	assert.Zero(t, service.ExpireIdle(10*time.Minute), "still within the reconnect window")

	returning := &recordingPresenter{}
	_, err = service.Open(ctx, "set-1", "run-7", returning)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 999, service.ExpireIdle(10*time.Minute))
	assert.Equal(t, 2, runs.Len())
	_, err = service.Run("run-7")
	assert.NoError(t, err, "reattached runs are not idle")
	_, err = service.Run("connected")
	assert.NoError(t, err)
	_, err = service.Run("run-1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

// gatedBests holds the first LoadBest until release is closed.
type gatedBests struct {
	*memory.BestsStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBests) LoadBest(ctx context.Context) (domain.Bests, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.BestsStore.LoadBest(ctx)
}

func TestRunServiceConcurrentRunsNeverLowerBests(t *testing.T) {
	ctx := context.Background()
	bests := &gatedBests{
		BestsStore: memory.NewBestsStore(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	loader := memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		"set-1": {ID: "set-1", Questions: []domain.Question{boolQuestion("q1", 5, true), boolQuestion("q2", 5, true)}},
	})
	service := app.NewRunService(memory.NewRunStore(), memory.NewQuestionRepository(loader, 0), bests,
		memory.NewManualScheduler(), domain.QuizConfig{PerQuestionDefaultSeconds: 5}, nil)

	slow, err := service.Open(ctx, "set-1", "slow", &recordingPresenter{})
	require.NoError(t, err)
	fast, err := service.Open(ctx, "set-1", "fast", &recordingPresenter{})
	require.NoError(t, err)

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		slow.Answer(ctx, domain.TrueFalse(true))
	}()
	<-bests.entered

	fastDone := make(chan struct{})
	go func() {
		defer close(fastDone)
		fast.Answer(ctx, domain.TrueFalse(true))
		fast.Answer(ctx, domain.TrueFalse(true))
	}()

	select {
	case <-fastDone:
		t.Fatal("second run updated bests while the first was mid-update")
	case <-time.After(50 * time.Millisecond):
	}
	close(bests.release)
	<-slowDone
	<-fastDone

	stored, err := bests.BestsStore.LoadBest(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Bests{BestScore: 2, BestStreak: 2}, stored)
}

func newTestService(runs app.RunRepository, sched app.Scheduler, now func() time.Time) *app.RunService {
	loader := memory.NewStaticQuestionLoader(map[string]domain.QuestionSet{
		"set-1": {ID: "set-1", Questions: []domain.Question{boolQuestion("q1", 5, true), boolQuestion("q2", 5, false)}},
	})
	return app.NewRunServiceWithClock(runs, memory.NewQuestionRepository(loader, 0), memory.NewBestsStore(), sched,
		domain.QuizConfig{PerQuestionDefaultSeconds: 5}, nil, now)
}

func newTestDriver(questions ...domain.Question) (*app.Driver, *memory.ManualScheduler, *recordingPresenter) {
	bests := memory.NewBestsStore()
	sched := memory.NewManualScheduler()
	engine := app.NewEngine(questions, domain.QuizConfig{PerQuestionDefaultSeconds: 5}, bests, sched)
	p := &recordingPresenter{}
	return app.NewDriver(engine, p, nil), sched, p
}

type recordingPresenter struct {
	mu      sync.Mutex
	events  []string
	summary domain.Summary
}

func (p *recordingPresenter) record(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf(format, args...))
}

func (p *recordingPresenter) ShowQuestion(q domain.Question, index, total int, _ domain.Score) {
	p.record("question:%s:%d/%d", q.ID, index, total)
}

func (p *recordingPresenter) ShowTick(remaining int) {
	p.record("tick:%d", remaining)
}

func (p *recordingPresenter) ShowFeedback(correct bool, q domain.Question, _ domain.Score) {
	p.record("feedback:%s:%t", q.ID, correct)
}

func (p *recordingPresenter) ShowTimeout(q domain.Question, _ domain.Score) {
	p.record("timeout:%s", q.ID)
}

func (p *recordingPresenter) ShowPaused(paused bool, remaining int) {
	p.record("paused:%t:%d", paused, remaining)
}

func (p *recordingPresenter) ShowSummary(summary domain.Summary) {
	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()
	p.record("summary:%d/%d", summary.Score.Correct, summary.Score.Total)
}

func (p *recordingPresenter) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := p.events
	p.events = nil
	return events
}

func (p *recordingPresenter) lastSummary() domain.Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary
}
