package domain

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	structValid  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		structValid = validator.New()
	})
	return structValid
}

// ValidateQuestionSet checks struct tags and the kind-shape rules of every question.
// Loaders call it at the storage boundary; the engine trusts its input.
func ValidateQuestionSet(set QuestionSet) error {
	if err := structValidator().Struct(set); err != nil {
		return fmt.Errorf("%w: set %q: %v", ErrInvalidQuestion, set.ID, err)
	}

	seen := make(map[string]struct{}, len(set.Questions))
	for i, q := range set.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: set %q: duplicate question id %q", ErrInvalidQuestion, set.ID, q.ID)
		}
		seen[q.ID] = struct{}{}

		if err := ValidateQuestion(q); err != nil {
			return fmt.Errorf("set %q question %d: %w", set.ID, i, err)
		}
	}
	return nil
}

// ValidateQuestion checks that a question's payload matches its kind.
func ValidateQuestion(q Question) error {
	if err := structValidator().Struct(q); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	switch data := q.Data.(type) {
	case TextData:
		if err := structValidator().Struct(data); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidQuestion, q.ID, err)
		}
		if data.CorrectIndex >= len(data.Options) {
			return fmt.Errorf("%w: %q: correct index %d out of range for %d options",
				ErrInvalidQuestion, q.ID, data.CorrectIndex, len(data.Options))
		}
	case BooleanData:
	default:
		return fmt.Errorf("%w: %q: %w", ErrInvalidQuestion, q.ID, ErrUnknownKind)
	}
	return nil
}
