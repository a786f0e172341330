package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir keeps a config.yaml in the working directory from leaking into
// the test.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)
	assert.Equal(t, "./data/state.json", cfg.StateFile)
	assert.Equal(t, []string{SinkJSONL}, cfg.EventSinks)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "clmm.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("state-file: from-file.json\nlog-level: warn\nmax-retries: 9\n"), 0o644))
	t.Setenv("CLMM_LOG_LEVEL", "debug")
	t.Setenv("CLMM_EVENT_SINKS", "jsonl, Postgres")
	t.Setenv("CLMM_PG_DSN", "postgres://localhost/clmm")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-retries", 5, "")
	require.NoError(t, flags.Parse([]string{"--max-retries=2"}))

	cfg, err := Load(cfgFile, flags)
	require.NoError(t, err)
	assert.Equal(t, "from-file.json", cfg.StateFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, []string{SinkJSONL, SinkPostgres}, cfg.EventSinks)
}

func TestLoadRejectsSinks(t *testing.T) {
	inTempDir(t)

	t.Setenv("CLMM_EVENT_SINKS", "kafka")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "unknown event sink")

	t.Setenv("CLMM_EVENT_SINKS", "postgres")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "needs pg-dsn")
}

func TestLoadAggregate(t *testing.T) {
	inTempDir(t)
	t.Setenv("CLMM_WINDOW", "1h")
	t.Setenv("CLMM_RECOMPUTE_FROM", "2024-01-01T00:00:00Z")

	cfg, err := LoadAggregate("", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3600), cfg.WindowSeconds())
	assert.Equal(t, uint64(1704067200), cfg.RecomputeFrom)
	assert.Equal(t, 1000, cfg.BatchSize)

	t.Setenv("CLMM_WINDOW", "500ms")
	_, err = LoadAggregate("", nil)
	assert.ErrorContains(t, err, "at least 1s")
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{" 1700000000 ", 1700000000, false},
		{"2023-11-14T22:13:20Z", 1700000000, false},
		{"yesterday", 0, true},
		{"1969-12-31T00:00:00Z", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
