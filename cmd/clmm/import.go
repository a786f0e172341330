package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmmLedger/internal/config"
	"clmmLedger/internal/storage"
)

func runImportState(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx := cmd.Context()
	w, err := storage.NewStateFile(cfg.StateFile).Load(ctx)
	if err != nil {
		return err
	}
	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	if err := stores.world.Save(ctx, w); err != nil {
		return fmt.Errorf("import accounts: %w", err)
	}
	logger.Info("state imported",
		zap.String("state_file", cfg.StateFile),
		zap.Int("pools", len(w.Pools)),
		zap.Int("personal_positions", len(w.PersonalPositions)),
		zap.Int("tick_arrays", len(w.TickArrays)),
	)
	return nil
}
