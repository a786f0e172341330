package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// AggregateConfig holds configuration for aggregation.
type AggregateConfig struct {
	Input         string
	Window        time.Duration
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom uint64
	// LedgerState optionally points at an account state file used for pool
	// decimals and vault balances.
	LedgerState string
	LogLevel    string
}

// WindowSeconds is Window in whole seconds.
func (c AggregateConfig) WindowSeconds() uint64 {
	return uint64(c.Window / time.Second)
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"in":         "./data/events.jsonl",
		"batch-size": 1000,
		"log-level":  "info",
		"window":     "5m",
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	window, err := time.ParseDuration(v.GetString("window"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("invalid window: %w", err)
	}
	if window < time.Second {
		return AggregateConfig{}, fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := ParseTimestamp(v.GetString("recompute-from"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("parse recompute-from: %w", err)
	}

	cfg := AggregateConfig{
		Input:         v.GetString("in"),
		Window:        window,
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: recomputeFrom,
		LedgerState:   v.GetString("ledger-state"),
		LogLevel:      v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	if tm.Unix() < 0 {
		return 0, fmt.Errorf("timestamp %s before epoch", input)
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
