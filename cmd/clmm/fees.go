package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"lukechampine.com/uint128"

	"clmmLedger/internal/accrual"
	"clmmLedger/internal/config"
	"clmmLedger/internal/ledger"
	"clmmLedger/internal/tickbitmap"
)

type feesOutput struct {
	Position       string   `json:"position,omitempty"`
	Liquidity      string   `json:"liquidity"`
	TokenFeesOwed0 string   `json:"token_fees_owed_0"`
	TokenFeesOwed1 string   `json:"token_fees_owed_1,omitempty"`
	RewardsOwed    []string `json:"rewards_owed,omitempty"`
}

func runFees(cmd *cobra.Command, _ []string) error {
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

	var out feesOutput
	nftMint, _ := cmd.Flags().GetString("nft-mint")
	if nftMint == "" {
		out, err = feesFromFlags(cmd.Flags())
	} else {
		var stores *backends
		stores, err = openBackends(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()
		out, err = previewPosition(cmd.Context(), stores, cfg.ProgramID, nftMint)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func feesFromFlags(flags *pflag.FlagSet) (feesOutput, error) {
	values := make(map[string]uint128.Uint128, 3)
	for _, name := range []string{"growth-last", "growth-latest", "liquidity"} {
		raw, _ := flags.GetString(name)
		v, err := uint128.FromString(raw)
		if err != nil {
			return feesOutput{}, fmt.Errorf("--%s: %w", name, err)
		}
		values[name] = v
	}
	lastTotal, _ := flags.GetUint64("last-total")

	owed, err := accrual.CalculateLatestTokenFees(lastTotal, values["growth-last"], values["growth-latest"], values["liquidity"])
	if err != nil {
		return feesOutput{}, err
	}
	return feesOutput{
		Liquidity:      values["liquidity"].String(),
		TokenFeesOwed0: strconv.FormatUint(owed, 10),
	}, nil
}

// previewPosition reports what a personal position would be owed if it were
// synchronized with its protocol position now. Nothing is written.
func previewPosition(ctx context.Context, stores *backends, rawProgramID, rawNftMint string) (feesOutput, error) {
	programID, err := solana.PublicKeyFromBase58(rawProgramID)
	if err != nil {
		return feesOutput{}, fmt.Errorf("program id: %w", err)
	}
	nftMint, err := solana.PublicKeyFromBase58(rawNftMint)
	if err != nil {
		return feesOutput{}, fmt.Errorf("--nft-mint: %w", err)
	}

	w, err := stores.world.Load(ctx)
	if err != nil {
		return feesOutput{}, err
	}
	personal, err := w.PersonalPositionByNft(nftMint)
	if err != nil {
		return feesOutput{}, err
	}
	protocolAddr, err := tickbitmap.ProtocolPositionAddress(programID, personal.PoolID, personal.TickLowerIndex, personal.TickUpperIndex)
	if err != nil {
		return feesOutput{}, err
	}
	protocol, ok := w.ProtocolPositions[protocolAddr.String()]
	if !ok {
		return feesOutput{}, fmt.Errorf("protocol position %s: %w", protocolAddr, ledger.ErrAccountNotFound)
	}

	preview := personal.Clone()
	if err := accrual.Synchronize(preview, protocol); err != nil {
		return feesOutput{}, err
	}
	out := feesOutput{
		Position:       nftMint.String(),
		Liquidity:      preview.Liquidity.String(),
		TokenFeesOwed0: strconv.FormatUint(preview.TokenFeesOwed0, 10),
		TokenFeesOwed1: strconv.FormatUint(preview.TokenFeesOwed1, 10),
	}
	for _, r := range preview.RewardInfos {
		out.RewardsOwed = append(out.RewardsOwed, strconv.FormatUint(r.RewardAmountOwed, 10))
	}
	return out, nil
}
