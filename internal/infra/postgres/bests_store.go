package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-runner/internal/domain"
)

const (
	bestScoreKey  = "quiz.bestScore"
	bestStreakKey = "quiz.bestStreak"
)

// BestsStore keeps bests as two rows of the bests key/value table.
type BestsStore struct {
	pool *pgxpool.Pool
}

func NewBestsStore(pool *pgxpool.Pool) *BestsStore {
	return &BestsStore{pool: pool}
}

func (s *BestsStore) LoadBest(ctx context.Context) (domain.Bests, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM bests WHERE key = ANY($1)`, []string{bestScoreKey, bestStreakKey})
	if err != nil {
		return domain.Bests{}, fmt.Errorf("load bests: %w", err)
	}
	defer rows.Close()

	var bests domain.Bests
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Bests{}, fmt.Errorf("scan bests: %w", err)
		}
		switch key {
		case bestScoreKey:
			bests.BestScore = parseCount(value)
		case bestStreakKey:
			bests.BestStreak = parseCount(value)
		}
	}
	return bests, rows.Err()
}

func (s *BestsStore) SaveBest(ctx context.Context, score, streak int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bests (key, value) VALUES ($1, $2), ($3, $4)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		bestScoreKey, strconv.Itoa(score), bestStreakKey, strconv.Itoa(streak))
	if err != nil {
		return fmt.Errorf("save bests: %w", err)
	}
	return nil
}

func (s *BestsStore) ResetAllProgress(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM bests WHERE key = ANY($1)`, []string{bestScoreKey, bestStreakKey}); err != nil {
		return fmt.Errorf("reset bests: %w", err)
	}
	return nil
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
