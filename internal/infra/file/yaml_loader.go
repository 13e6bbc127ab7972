package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quiz-runner/internal/domain"
)

// setsDocument is the on-disk layout of a question file.
type setsDocument struct {
	Sets []domain.QuestionSet `yaml:"sets"`
}

// YAMLQuestionLoader reads question sets from a YAML document on every load;
// put a caching repository in front of it.
type YAMLQuestionLoader struct {
	path string
}

func NewYAMLQuestionLoader(path string) *YAMLQuestionLoader {
	return &YAMLQuestionLoader{path: path}
}

func (l *YAMLQuestionLoader) LoadQuestionSet(_ context.Context, setID string) (domain.QuestionSet, error) {
	sets, err := ReadQuestionSets(l.path)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	for _, set := range sets {
		if set.ID == setID {
			return set, nil
		}
	}
	return domain.QuestionSet{}, fmt.Errorf("%s: %q: %w", l.path, setID, domain.ErrQuestionSetNotFound)
}

// ReadQuestionSets parses and validates every set in a YAML file.
func ReadQuestionSets(path string) ([]domain.QuestionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	return ParseQuestionSets(data)
}

// ParseQuestionSets decodes a `sets:` document.
func ParseQuestionSets(data []byte) ([]domain.QuestionSet, error) {
	var doc setsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuestion, err)
	}
	for _, set := range doc.Sets {
		if err := domain.ValidateQuestionSet(set); err != nil {
			return nil, err
		}
	}
	return doc.Sets, nil
}
