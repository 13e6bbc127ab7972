package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/file"
	pgstore "quiz-runner/internal/infra/postgres"
	redisstore "quiz-runner/internal/infra/redis"
)

// NewSeedCmd loads question sets from a YAML or XLSX file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert question sets from a .yaml or .xlsx file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, path)
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "question file (.yaml, .yml or .xlsx)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, path string) (err error) {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	sets, err := readSets(path)
	if err != nil {
		return err
	}

	res, err := openResources(ctx, cfg)
	if err != nil {
		return err
	}
	db := pgstore.OpenBun(cfg.Postgres.URL)
	defer func() {
		var closeErr *multierror.Error
		if cerr := db.Close(); cerr != nil {
			closeErr = multierror.Append(closeErr, fmt.Errorf("close db: %w", cerr))
		}
		if cerr := res.Close(); cerr != nil {
			closeErr = multierror.Append(closeErr, cerr)
		}
		if cerr := closeErr.ErrorOrNil(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	if _, err := pgstore.Migrate(ctx, db); err != nil {
		return err
	}
	n, err := pgstore.SeedQuestionSets(ctx, db, sets)
	if err != nil {
		return err
	}

	// cached copies would hide the new questions until they expire
	if res.redis != nil {
		repo := redisstore.NewQuestionRepository(res.redis, nil, 0, res.logger)
		for _, set := range sets {
			if err := repo.Invalidate(ctx, set.ID); err != nil {
				res.logger.Warn("invalidate cached set", "set", set.ID, "err", err)
			}
		}
	}
	res.logger.Info("question sets seeded", "count", n, "file", path)
	return nil
}

func readSets(path string) ([]domain.QuestionSet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return file.ReadQuestionSets(path)
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		base := filepath.Base(path)
		set, err := file.ParseXLSX(f, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, err
		}
		return []domain.QuestionSet{set}, nil
	default:
		return nil, fmt.Errorf("unsupported question file %q", path)
	}
}
