package memory

import (
	"context"
	"sync"

	"quiz-runner/internal/domain"
)

// BestsStore keeps bests for the lifetime of the process.
type BestsStore struct {
	mu    sync.Mutex
	bests domain.Bests
	saves int
}

func NewBestsStore() *BestsStore {
	return &BestsStore{}
}

func (s *BestsStore) LoadBest(_ context.Context) (domain.Bests, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bests, nil
}

func (s *BestsStore) SaveBest(_ context.Context, score, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bests = domain.Bests{BestScore: score, BestStreak: streak}
	s.saves++
	return nil
}

func (s *BestsStore) ResetAllProgress(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bests = domain.Bests{}
	return nil
}

// Saves reports how many times SaveBest was called.
func (s *BestsStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
