package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/domain"
)

const (
	bestScoreKey  = "quiz.bestScore"
	bestStreakKey = "quiz.bestStreak"
)

// BestsStore persists bests as two plain string keys shared by every run.
type BestsStore struct {
	client *redis.Client
}

func NewBestsStore(client *redis.Client) *BestsStore {
	return &BestsStore{client: client}
}

func (s *BestsStore) LoadBest(ctx context.Context) (domain.Bests, error) {
	values, err := s.client.MGet(ctx, bestScoreKey, bestStreakKey).Result()
	if err != nil {
		return domain.Bests{}, err
	}
	return domain.Bests{
		BestScore:  parseCount(values[0]),
		BestStreak: parseCount(values[1]),
	}, nil
}

func (s *BestsStore) SaveBest(ctx context.Context, score, streak int) error {
	return s.client.MSet(ctx,
		bestScoreKey, strconv.Itoa(score),
		bestStreakKey, strconv.Itoa(streak),
	).Err()
}

func (s *BestsStore) ResetAllProgress(ctx context.Context) error {
	err := s.client.Del(ctx, bestScoreKey, bestStreakKey).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Missing or non-numeric values count as zero.
func parseCount(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
