package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"clmmLedger/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clmm",
		Short:        "Concentrated liquidity position ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	increaseCmd := &cobra.Command{
		Use:   "increase",
		Short: "Add liquidity to an existing position",
		RunE:  runIncrease,
	}
	addLedgerFlags(increaseCmd)
	increaseCmd.Flags().String("owner", "", "signer public key (base58)")
	increaseCmd.Flags().String("nft-account", "", "token account holding the position NFT")
	increaseCmd.Flags().String("token-account0", "", "owner token account for token 0")
	increaseCmd.Flags().String("token-account1", "", "owner token account for token 1")
	increaseCmd.Flags().String("liquidity", "0", "liquidity to add (decimal u128), ignored with --base")
	increaseCmd.Flags().Uint64("amount0-max", 0, "maximum token 0 the owner pays, transfer fee included")
	increaseCmd.Flags().Uint64("amount1-max", 0, "maximum token 1 the owner pays, transfer fee included")
	increaseCmd.Flags().String("base", "", "size liquidity from one amount: 0 or 1")
	increaseCmd.Flags().Bool("token-2022", false, "use the Token-2022 instruction variant")
	increaseCmd.Flags().Uint64("timestamp", 0, "execution unix time, 0 means now")
	increaseCmd.Flags().StringSlice("event-sinks", []string{config.SinkJSONL}, "event sinks: jsonl, postgres")
	increaseCmd.Flags().String("events-out", "./data/events.jsonl", "event JSONL path")
	root.AddCommand(increaseCmd)

	feesCmd := &cobra.Command{
		Use:   "fees",
		Short: "Compute fees owed from fee growth checkpoints, or preview a position",
		RunE:  runFees,
	}
	addLedgerFlags(feesCmd)
	feesCmd.Flags().String("nft-mint", "", "preview the position minted as this NFT")
	feesCmd.Flags().Uint64("last-total", 0, "fees owed before the update")
	feesCmd.Flags().String("growth-last", "0", "fee growth inside at the checkpoint (X64)")
	feesCmd.Flags().String("growth-latest", "0", "current fee growth inside (X64)")
	feesCmd.Flags().String("liquidity", "0", "position liquidity")
	root.AddCommand(feesCmd)

	bitmapCmd := &cobra.Command{
		Use:   "bitmap-key",
		Short: "Derive the tick array bitmap extension address of a pool",
		RunE:  runBitmapKey,
	}
	bitmapCmd.Flags().String("program-id", config.DefaultProgramID, "CLMM program id")
	bitmapCmd.Flags().String("pool", "", "pool address")
	bitmapCmd.Flags().Uint16("tick-spacing", 0, "pool tick spacing, enables the extension check")
	bitmapCmd.Flags().Int32("tick-lower", 0, "position lower tick")
	bitmapCmd.Flags().Int32("tick-upper", 0, "position upper tick")
	root.AddCommand(bitmapCmd)

	importCmd := &cobra.Command{
		Use:   "import-state",
		Short: "Copy the state file's accounts into Postgres",
		RunE:  runImportState,
	}
	addLedgerFlags(importCmd)
	root.AddCommand(importCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate increase events into window metrics",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "./data/events.jsonl", "input event JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("ledger-state", "", "optional account state file for decimals and vault balances")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(aggregateCmd)

	return root
}

func addLedgerFlags(cmd *cobra.Command) {
	cmd.Flags().String("program-id", config.DefaultProgramID, "CLMM program id")
	cmd.Flags().String("state-file", "./data/state.json", "account state file")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, keeps accounts in Postgres instead of the state file")
	cmd.Flags().Int("max-retries", 5, "reruns of a conflicting Postgres transaction")
	cmd.Flags().Duration("retry-backoff", 50*time.Millisecond, "initial rerun backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
