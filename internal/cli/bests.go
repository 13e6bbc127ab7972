package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
)

// NewBestsCmd prints the persisted bests.
func NewBestsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bests",
		Short: "Show the best score and best streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBestsStore(cmd.Context(), *configPath, func(store app.BestsStore) error {
				bests, err := store.LoadBest(cmd.Context())
				if err != nil {
					return err
				}
				return printBests(cmd.OutOrStdout(), bests.BestScore, bests.BestStreak)
			})
		},
	}
}

// NewResetProgressCmd clears the persisted bests.
func NewResetProgressCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-progress",
		Short: "Clear the best score and best streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBestsStore(cmd.Context(), *configPath, func(store app.BestsStore) error {
				if err := store.ResetAllProgress(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "progress reset")
				return err
			})
		},
	}
}

func withBestsStore(ctx context.Context, configPath string, fn func(app.BestsStore) error) (err error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	res, err := openResources(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	store, err := res.bestsStore()
	if err != nil {
		return err
	}
	return fn(store)
}

func printBests(w io.Writer, score, streak int) error {
	_, err := fmt.Fprintf(w, "best score:  %d\nbest streak: %d\n", score, streak)
	return err
}
