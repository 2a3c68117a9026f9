package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "Kroger", cfg.Pipeline.Source)
	require.Equal(t, 12, cfg.Pipeline.Workers)
	require.Equal(t, 3, cfg.Pipeline.RetryBudget)
	require.Empty(t, cfg.Pipeline.States)

	min, max := cfg.BackoffRange()
	require.Equal(t, 5*time.Second, min)
	require.Equal(t, 15*time.Second, max)

	min, max = cfg.JitterRange()
	require.Equal(t, 1*time.Second, min)
	require.Equal(t, 3*time.Second, max)

	min, max = cfg.TimeoutRange()
	require.Equal(t, 10*time.Second, min)
	require.Equal(t, 100*time.Second, max)

	require.Contains(t, cfg.HTTP.Endpoint, "modality/options")
	require.False(t, cfg.Monitor.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  workers: 4
  retry_budget: 2
  states:
    - Alabama
    - Connecticut
http:
  endpoint: http://localhost:8081/modality/options
output:
  ledger: /tmp/scout/out.csv
monitor:
  enabled: true
  port: 9191
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Pipeline.Workers)
	require.Equal(t, 2, cfg.Pipeline.RetryBudget)
	require.Equal(t, []string{"Alabama", "Connecticut"}, cfg.Pipeline.States)
	require.Equal(t, "http://localhost:8081/modality/options", cfg.HTTP.Endpoint)
	require.Equal(t, "/tmp/scout/out.csv", cfg.Output.Ledger)
	require.True(t, cfg.Monitor.Enabled)
	require.Equal(t, 9191, cfg.Monitor.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "pipeline.workers"},
		{"zero budget", func(c *Config) { c.Pipeline.RetryBudget = 0 }, "pipeline.retry_budget"},
		{"inverted backoff", func(c *Config) { c.Pipeline.BackoffMaxSeconds = 1 }, "backoff_max_seconds"},
		{"inverted timeout", func(c *Config) { c.HTTP.TimeoutMaxSeconds = 1 }, "timeout_max_seconds"},
		{"no endpoint", func(c *Config) { c.HTTP.Endpoint = "" }, "http.endpoint"},
		{"no ledger", func(c *Config) { c.Output.Ledger = "" }, "output.ledger"},
		{"bad monitor port", func(c *Config) { c.Monitor.Enabled = true; c.Monitor.Port = 0 }, "monitor.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(&cfg)
			err = cfg.Validate()
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
