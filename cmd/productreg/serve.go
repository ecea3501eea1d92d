package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vbonduro/productreg/internal/config"
	"github.com/vbonduro/productreg/internal/intake"
	"github.com/vbonduro/productreg/internal/registry"
	"github.com/vbonduro/productreg/internal/session"
	"github.com/vbonduro/productreg/internal/stagestore"
	"github.com/vbonduro/productreg/internal/stagestore/local"
	"github.com/vbonduro/productreg/internal/stagestore/s3"
	"github.com/vbonduro/productreg/internal/web"
	"github.com/vbonduro/productreg/internal/web/templates"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registration web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	blobs, err := newStageStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	client := registry.NewClient(cfg.RegistryURL, cfg.RegistryTimeout, logger)
	sessions := session.NewManager(session.Options{
		Submitter: client,
		Querier:   client,
		Blobs:     blobs,
		Limits:    intake.Limits{MaxFiles: cfg.MaxStagedFiles, MaxFileBytes: cfg.MaxFileBytes},
		TTL:       cfg.SessionTTL,
		Logger:    logger,
	})
	if err := sessions.Start(cfg.SessionSweep); err != nil {
		return fmt.Errorf("start session janitor: %w", err)
	}
	defer sessions.Stop(context.WithoutCancel(ctx))

	server := web.NewServer(sessions, blobs, templates.FS, logger)
	return serveUntilDone(ctx, logger,
		func() error { return server.ListenAndServe(cfg.ListenAddr) },
		server.Shutdown,
	)
}

func newStageStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stagestore.Store, error) {
	switch cfg.StageBackend {
	case "s3":
		store, err := s3.New(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("init stage store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("init stage store: %w", err)
		}
		logger.Info("staging files in S3", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return store, nil
	default:
		store, err := local.New(cfg.StageLocalPath)
		if err != nil {
			return nil, fmt.Errorf("init stage store: %w", err)
		}
		logger.Info("staging files on disk", "path", cfg.StageLocalPath)
		return store, nil
	}
}
