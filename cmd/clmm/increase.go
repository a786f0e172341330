package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmLedger/internal/config"
	"clmmLedger/internal/errcode"
	"clmmLedger/internal/events"
	"clmmLedger/internal/increase"
	"clmmLedger/internal/ledger"
	"clmmLedger/internal/liquidity"
	"clmmLedger/internal/model"
)

func runIncrease(cmd *cobra.Command, _ []string) error {
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

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}
	req, params, err := increaseInputs(cmd.Flags(), programID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	sinks, err := stores.eventSinks(cfg)
	if err != nil {
		return err
	}
	bus := &events.Bus{}
	eventTime := time.Unix(int64(params.Timestamp), 0)
	fwd := events.Forward(ctx, bus, func() time.Time { return eventTime }, logger, sinks...)

	pending := &events.Buffer{}
	inc := increase.New(programID, liquidity.NewEngine(logger), pending, logger)

	var ev model.IncreaseLiquidityEvent
	err = stores.world.Update(ctx, func(w *ledger.World) error {
		pending.Reset()
		accts, standard, err := w.Accounts(req)
		if err != nil {
			return err
		}
		if t, ok := standard.(model.Token2022); ok {
			ev, err = inc.IncreaseLiquidityV2(accts, t.Program, t.Vault0Mint, t.Vault1Mint, params)
		} else {
			ev, err = inc.IncreaseLiquidityV1(accts, params)
		}
		return err
	})
	if err != nil {
		_ = fwd.Close()
		logger.Error("increase liquidity failed",
			zap.Error(err),
			zap.String("category", string(errcode.Classify(err))),
			zap.Bool("retryable", errcode.Retryable(err)),
		)
		return err
	}

	pending.Flush(bus)
	if err := fwd.Close(); err != nil {
		return fmt.Errorf("forward events: %w", err)
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	out.SetIndent("", "  ")
	return out.Encode(ev.Record(params.Timestamp))
}

func increaseInputs(flags *pflag.FlagSet, programID solana.PublicKey) (ledger.Request, increase.Params, error) {
	req := ledger.Request{ProgramID: programID}
	var params increase.Params

	keys := []struct {
		flag string
		dst  *solana.PublicKey
	}{
		{"owner", &req.Owner},
		{"nft-account", &req.NftAccount},
		{"token-account0", &req.TokenAccount0},
		{"token-account1", &req.TokenAccount1},
	}
	for _, k := range keys {
		raw, _ := flags.GetString(k.flag)
		if raw == "" {
			return req, params, fmt.Errorf("--%s is required", k.flag)
		}
		key, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return req, params, fmt.Errorf("--%s: %w", k.flag, err)
		}
		*k.dst = key
	}
	req.Token2022, _ = flags.GetBool("token-2022")

	rawLiquidity, _ := flags.GetString("liquidity")
	liq, err := uint128.FromString(rawLiquidity)
	if err != nil {
		return req, params, fmt.Errorf("--liquidity: %w", err)
	}
	params.Liquidity = liq
	params.Amount0Max, _ = flags.GetUint64("amount0-max")
	params.Amount1Max, _ = flags.GetUint64("amount1-max")

	base, _ := flags.GetString("base")
	switch base {
	case "":
	case "0", "1":
		isBase0 := base == "0"
		params.BaseFlag = &isBase0
	default:
		return req, params, fmt.Errorf("--base must be 0 or 1, got %q", base)
	}

	params.Timestamp, _ = flags.GetUint64("timestamp")
	if params.Timestamp == 0 {
		params.Timestamp = uint64(time.Now().Unix())
	}
	return req, params, nil
}
