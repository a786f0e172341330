package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmmLedger/internal/aggregate"
	"clmmLedger/internal/config"
	"clmmLedger/internal/storage"
	"clmmLedger/internal/storage/postgres"
)

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	windowSeconds := cfg.WindowSeconds()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	pools := aggregate.NewPoolInfoCache()
	if cfg.LedgerState != "" {
		w, err := storage.NewStateFile(cfg.LedgerState).Load(ctx)
		if err != nil {
			return fmt.Errorf("load ledger state: %w", err)
		}
		pools = aggregate.LoadPoolInfo(w)
	}

	var stateStore aggregate.StateStore
	if cfg.StateFile != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.StateFile}
	} else {
		stateStore = &aggregate.DBStateStore{Rows: store, Name: aggregate.StateName(windowSeconds)}
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: cfg.RecomputeFrom,
		StateStore:    stateStore,
		Pools:         pools,
	}, store, logger)

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", cfg.RecomputeFrom),
	)

	return agg.Run(ctx, cfg.Input)
}
