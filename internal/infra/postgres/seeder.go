package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-runner/internal/domain"
)

type questionSetRow struct {
	bun.BaseModel `bun:"table:question_sets"`

	ID        string             `bun:"id,pk"`
	Title     string             `bun:"title"`
	Data      domain.QuestionSet `bun:"data,type:jsonb"`
	UpdatedAt time.Time          `bun:"updated_at"`
}

// SeedQuestionSets validates and upserts sets into question_sets.
func SeedQuestionSets(ctx context.Context, db *bun.DB, sets []domain.QuestionSet) (int, error) {
	if len(sets) == 0 {
		return 0, nil
	}
	rows := make([]questionSetRow, 0, len(sets))
	now := time.Now().UTC()
	for _, set := range sets {
		if err := domain.ValidateQuestionSet(set); err != nil {
			return 0, fmt.Errorf("seed %q: %w", set.ID, err)
		}
		rows = append(rows, questionSetRow{ID: set.ID, Title: set.Title, Data: set, UpdatedAt: now})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert question sets: %w", err)
	}
	return len(rows), nil
}
