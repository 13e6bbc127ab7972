package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"quiz-runner/internal/domain"
)

// BestsStore keeps bests in a small YAML document.
type BestsStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewBestsStore(path string, logger *slog.Logger) *BestsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &BestsStore{path: path, logger: logger}
}

// DefaultBestsPath is ~/.quiz-runner/bests.yaml, or a relative path when no home is known.
func DefaultBestsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".quiz-runner", "bests.yaml")
	}
	return filepath.Join(home, ".quiz-runner", "bests.yaml")
}

// LoadBest treats a missing or unreadable document as zero bests.
func (s *BestsStore) LoadBest(_ context.Context) (domain.Bests, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Bests{}, nil
	}
	if err != nil {
		return domain.Bests{}, fmt.Errorf("read bests: %w", err)
	}

	var raw struct {
		BestScore  interface{} `yaml:"bestScore"`
		BestStreak interface{} `yaml:"bestStreak"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("corrupt bests file, using zero", "path", s.path, "err", err)
		return domain.Bests{}, nil
	}
	return domain.Bests{
		BestScore:  count(raw.BestScore),
		BestStreak: count(raw.BestStreak),
	}, nil
}

func (s *BestsStore) SaveBest(_ context.Context, score, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(domain.Bests{BestScore: score, BestStreak: streak})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create bests dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write bests: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace bests: %w", err)
	}
	return nil
}

func (s *BestsStore) ResetAllProgress(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove bests: %w", err)
	}
	return nil
}

func count(v interface{}) int {
	n, ok := v.(int)
	if !ok || n < 0 {
		return 0
	}
	return n
}
