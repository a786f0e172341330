package main

import (
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"clmmLedger/internal/tickbitmap"
)

type bitmapKeyOutput struct {
	Pool      string `json:"pool"`
	Extension string `json:"extension"`
	// Required is set only when a tick spacing was given.
	Required *bool `json:"required,omitempty"`
}

func runBitmapKey(cmd *cobra.Command, _ []string) error {
	rawProgram, _ := cmd.Flags().GetString("program-id")
	rawPool, _ := cmd.Flags().GetString("pool")
	if rawPool == "" {
		return fmt.Errorf("--pool is required")
	}
	programID, err := solana.PublicKeyFromBase58(rawProgram)
	if err != nil {
		return fmt.Errorf("--program-id: %w", err)
	}
	pool, err := solana.PublicKeyFromBase58(rawPool)
	if err != nil {
		return fmt.Errorf("--pool: %w", err)
	}

	ext, err := tickbitmap.ExtensionAddress(programID, pool)
	if err != nil {
		return err
	}
	out := bitmapKeyOutput{Pool: pool.String(), Extension: ext.String()}

	if spacing, _ := cmd.Flags().GetUint16("tick-spacing"); spacing > 0 {
		lower, _ := cmd.Flags().GetInt32("tick-lower")
		upper, _ := cmd.Flags().GetInt32("tick-upper")
		required := tickbitmap.IsOverflowDefaultTickArrayBitmap(spacing, lower, upper)
		out.Required = &required
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
