package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/productreg/internal/config"
	"github.com/vbonduro/productreg/internal/listing"
	"github.com/vbonduro/productreg/internal/logging"
	"github.com/vbonduro/productreg/internal/registry"
	"github.com/vbonduro/productreg/internal/tui"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Page through submitted products in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			// The TUI owns the terminal; logs only go to LOG_FILE.
			logger, cleanup, err := logging.NewFileOnly(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer cleanup()

			client := registry.NewClient(cfg.RegistryURL, cfg.RegistryTimeout, logger)
			return tui.Run(cmd.Context(), listing.NewViewer(client, logger))
		},
	}
}
