package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/productreg/internal/config"
	"github.com/vbonduro/productreg/internal/logging"
)

const shutdownTimeout = 15 * time.Second

var envFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "productreg: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "productreg",
		Short:        "Product registration web app, registry stand-in and terminal viewer",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default .env if present)")
	cmd.AddCommand(
		newServeCmd(),
		newRegistryCmd(),
		newBrowseCmd(),
	)
	return cmd
}

// setup loads config and installs the default logger. The returned cleanup
// closes the log file, if any.
func setup() (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, cleanup, nil
}

// serveUntilDone runs serve until it fails or ctx is cancelled, then shuts
// down gracefully.
func serveUntilDone(ctx context.Context, logger *slog.Logger, serve func() error, shutdown func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
