package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/productreg/internal/config"
	"github.com/vbonduro/productreg/internal/db"
	"github.com/vbonduro/productreg/internal/registryd"
	"github.com/vbonduro/productreg/internal/store"
	"github.com/vbonduro/productreg/internal/store/mongo"
)

func newRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Run the local register/getdata stand-in service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()
			return runRegistry(cmd.Context(), cfg, logger)
		},
	}
}

func runRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	records, closeRecords, err := openRecords(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecords()

	srv := &http.Server{
		Addr:         cfg.RegistryListenAddr,
		Handler:      registryd.New(records, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logger.Info("starting registry", "addr", cfg.RegistryListenAddr, "backend", cfg.RegistryBackend)
	return serveUntilDone(ctx, logger, srv.ListenAndServe, srv.Shutdown)
}

func openRecords(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Records, func(), error) {
	if cfg.RegistryBackend == "mongo" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		records, err := mongo.NewRecordStore(connectCtx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, fmt.Errorf("init mongodb store: %w", err)
		}
		return records, func() {
			if err := records.Close(context.Background()); err != nil {
				logger.Error("failed to close mongodb connection", "error", err)
			}
		}, nil
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return store.NewRecordStore(database), func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}, nil
}
