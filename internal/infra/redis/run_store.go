package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/app"
)

// RunStore is a Redis-aware implementation of app.RunRepository.
// Drivers own goroutine-bound timers so they stay in the local map;
// Redis only carries a liveness marker per run so operators can see
// which runs an instance is holding.
type RunStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	runs   map[string]*app.Driver
}

func NewRunStore(client *redis.Client, ttl time.Duration) *RunStore {
	return &RunStore{
		client: client,
		ttl:    ttl,
		runs:   make(map[string]*app.Driver),
	}
}

func (s *RunStore) GetOrCreate(runID string, create func() *app.Driver) (*app.Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if driver, ok := s.runs[runID]; ok {
		s.touch(runID)
		return driver, false
	}
	driver := create()
	s.runs[runID] = driver
	s.touch(runID)
	return driver, true
}

func (s *RunStore) Get(runID string) (*app.Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	driver, ok := s.runs[runID]
	if ok {
		s.touch(runID)
	}
	return driver, ok
}

func (s *RunStore) DeleteIfFinished(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	driver, ok := s.runs[runID]
	if !ok {
		return
	}
	if driver.Engine().IsFinished() {
		delete(s.runs, runID)
		_ = s.client.Del(context.Background(), s.key(runID)).Err()
	}
}

// DeleteIdle drops runs detached before cutoff along with their markers
// and refreshes the markers of every run it keeps.
func (s *RunStore) DeleteIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	var expired []string
	pipe := s.client.Pipeline()
	for runID, driver := range s.runs {
		if since, idle := driver.IdleSince(); idle && since.Before(cutoff) {
			delete(s.runs, runID)
			expired = append(expired, s.key(runID))
			continue
		}
		pipe.Set(ctx, s.key(runID), "1", s.ttl)
	}
	if len(expired) > 0 {
		pipe.Del(ctx, expired...)
	}
	_, _ = pipe.Exec(ctx)
	return len(expired)
}

// best-effort liveness marker
func (s *RunStore) touch(runID string) {
	_ = s.client.Set(context.Background(), s.key(runID), "1", s.ttl).Err()
}

func (s *RunStore) key(runID string) string {
	return "quiz:run:" + runID
}
