package memory

import (
	"sync"
	"time"

	"quiz-runner/internal/app"
)

// RunStore is an in-memory implementation of app.RunRepository.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*app.Driver
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]*app.Driver),
	}
}

func (s *RunStore) GetOrCreate(runID string, create func() *app.Driver) (*app.Driver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if driver, ok := s.runs[runID]; ok {
		return driver, false
	}
	driver := create()
	s.runs[runID] = driver
	return driver, true
}

func (s *RunStore) Get(runID string) (*app.Driver, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	driver, ok := s.runs[runID]
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
	}
}

func (s *RunStore) DeleteIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for runID, driver := range s.runs {
		if since, idle := driver.IdleSince(); idle && since.Before(cutoff) {
			delete(s.runs, runID)
			n++
		}
	}
	return n
}

// Len reports the number of live runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
