package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/file"
	"quiz-runner/internal/infra/memory"
	pgstore "quiz-runner/internal/infra/postgres"
	redisstore "quiz-runner/internal/infra/redis"
)

// resources holds the connections one command opened.
type resources struct {
	cfg    config.Config
	logger *slog.Logger
	redis  *redis.Client
	pool   *pgxpool.Pool
}

// openResources connects only to what the config names.
func openResources(ctx context.Context, cfg config.Config) (*resources, error) {
	res := &resources{cfg: cfg, logger: config.NewLogger(cfg, os.Stderr)}
	if cfg.Redis.Addr != "" {
		res.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, multierror.Append(fmt.Errorf("connect postgres: %w", err), res.Close())
		}
		res.pool = pool
	}
	return res, nil
}

func (r *resources) Close() error {
	var result *multierror.Error
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.pool != nil {
		r.pool.Close()
	}
	return result.ErrorOrNil()
}

func (r *resources) quizConfig() domain.QuizConfig {
	return domain.QuizConfig{
		PerQuestionDefaultSeconds: r.cfg.Quiz.DefaultSeconds,
		Shuffle:                   r.cfg.Quiz.Shuffle,
	}
}

func (r *resources) engineOptions() []app.EngineOption {
	return []app.EngineOption{
		app.WithTickInterval(config.TTLDuration(r.cfg.Quiz.TickInterval, time.Second)),
	}
}

// questionLoader picks the configured source and the set served when a client names none.
func (r *resources) questionLoader() (memory.QuestionLoader, string, error) {
	defaultSet := r.cfg.Quiz.Set
	switch r.cfg.Quiz.Source {
	case "", "builtin":
		if defaultSet == "" {
			defaultSet = memory.DefaultSetID
		}
		return memory.NewStaticQuestionLoader(memory.BuiltinQuestionSets()), defaultSet, nil
	case "yaml":
		if r.cfg.Quiz.Path == "" {
			return nil, "", fmt.Errorf("quiz.path is required for the yaml source")
		}
		return file.NewYAMLQuestionLoader(r.cfg.Quiz.Path), defaultSet, nil
	case "xlsx":
		if r.cfg.Quiz.Path == "" {
			return nil, "", fmt.Errorf("quiz.path is required for the xlsx source")
		}
		loader := file.NewXLSXQuestionLoader(r.cfg.Quiz.Path)
		if defaultSet == "" {
			defaultSet = loader.SetID()
		}
		return loader, defaultSet, nil
	case "postgres":
		if r.pool == nil {
			return nil, "", fmt.Errorf("postgres.url is required for the postgres source")
		}
		return pgstore.NewQuestionLoader(r.pool), defaultSet, nil
	default:
		return nil, "", fmt.Errorf("quiz.source %q: %w", r.cfg.Quiz.Source, domain.ErrUnknownBackend)
	}
}

func (r *resources) questionRepository(loader memory.QuestionLoader) app.QuestionRepository {
	ttl := config.TTLDuration(r.cfg.Quiz.CacheTTL, 10*time.Minute)
	if r.redis != nil {
		return redisstore.NewQuestionRepository(r.redis, loader, ttl, r.logger)
	}
	return memory.NewQuestionRepository(loader, ttl)
}

func (r *resources) bestsStore() (app.BestsStore, error) {
	switch r.cfg.Bests.Backend {
	case "", "file":
		path := r.cfg.Bests.Path
		if path == "" {
			path = file.DefaultBestsPath()
		}
		return file.NewBestsStore(path, r.logger), nil
	case "memory":
		return memory.NewBestsStore(), nil
	case "redis":
		if r.redis == nil {
			return nil, fmt.Errorf("redis.addr is required for the redis bests backend")
		}
		return redisstore.NewBestsStore(r.redis), nil
	case "postgres":
		if r.pool == nil {
			return nil, fmt.Errorf("postgres.url is required for the postgres bests backend")
		}
		return pgstore.NewBestsStore(r.pool), nil
	default:
		return nil, fmt.Errorf("bests.backend %q: %w", r.cfg.Bests.Backend, domain.ErrUnknownBackend)
	}
}

func (r *resources) runStore() app.RunRepository {
	if r.redis != nil {
		return redisstore.NewRunStore(r.redis, config.TTLDuration(r.cfg.Redis.TTL, 10*time.Minute))
	}
	return memory.NewRunStore()
}

// runService wires the full run stack; it also returns the default set id.
func (r *resources) runService(scheduler app.Scheduler) (*app.RunService, string, error) {
	loader, defaultSet, err := r.questionLoader()
	if err != nil {
		return nil, "", err
	}
	bests, err := r.bestsStore()
	if err != nil {
		return nil, "", err
	}
	service := app.NewRunService(r.runStore(), r.questionRepository(loader), bests, scheduler,
		r.quizConfig(), r.logger, r.engineOptions()...)
	return service, defaultSet, nil
}
