package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
	transport "quiz-runner/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand that serves runs over websockets.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the quiz websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) (err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
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

	service, defaultSet, err := res.runService(app.NewTickerScheduler())
	if err != nil {
		return err
	}
	wsHandler := transport.NewWSHandler(service, defaultSet, res.logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	idleTTL := config.TTLDuration(cfg.Quiz.RunIdleTTL, 10*time.Minute)
	go service.RunJanitor(janitorCtx, idleTTL/2, idleTTL)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      wsHandler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		res.logger.Info("starting quiz runner", "port", finalPort, "default_set", defaultSet)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			res.logger.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		res.logger.Info("shutting down server")
	case <-ctx.Done():
		res.logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
