package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultProgramID is the Raydium CLMM program on mainnet.
const DefaultProgramID = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"

// Event sink names accepted in EventSinks.
const (
	SinkJSONL    = "jsonl"
	SinkPostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ProgramID    string
	StateFile    string
	PGDSN        string
	EventsOut    string
	EventSinks   []string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"program-id":    DefaultProgramID,
		"state-file":    "./data/state.json",
		"events-out":    "./data/events.jsonl",
		"event-sinks":   []string{SinkJSONL},
		"max-retries":   5,
		"retry-backoff": 50 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ProgramID:    v.GetString("program-id"),
		StateFile:    v.GetString("state-file"),
		PGDSN:        v.GetString("pg-dsn"),
		EventsOut:    v.GetString("events-out"),
		EventSinks:   getStringSlice(v, "event-sinks"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	for _, sink := range cfg.EventSinks {
		switch sink {
		case SinkJSONL:
		case SinkPostgres:
			if cfg.PGDSN == "" {
				return Config{}, fmt.Errorf("event sink %q needs pg-dsn", sink)
			}
		default:
			return Config{}, fmt.Errorf("unknown event sink %q", sink)
		}
	}

	return cfg, nil
}

// newViper builds a viper instance reading CLMM_* environment variables,
// flags and an optional config file, in viper's usual precedence.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CLMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
