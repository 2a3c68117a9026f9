// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Input    InputConfig    `mapstructure:"input"`
	Output   OutputConfig   `mapstructure:"output"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PipelineConfig governs the worker pool and pacing.
type PipelineConfig struct {
	Source             string   `mapstructure:"source"`
	Workers            int      `mapstructure:"workers"`
	RetryBudget        int      `mapstructure:"retry_budget"`
	BackoffMinSeconds  int      `mapstructure:"backoff_min_seconds"`
	BackoffMaxSeconds  int      `mapstructure:"backoff_max_seconds"`
	JitterMinSeconds   int      `mapstructure:"jitter_min_seconds"`
	JitterMaxSeconds   int      `mapstructure:"jitter_max_seconds"`
	CooldownMinSeconds int      `mapstructure:"cooldown_min_seconds"`
	CooldownMaxSeconds int      `mapstructure:"cooldown_max_seconds"`
	RequestsPerSecond  float64  `mapstructure:"requests_per_second"`
	States             []string `mapstructure:"states"`
}

// HTTPConfig configures the upstream endpoint and request timeouts.
type HTTPConfig struct {
	Endpoint          string `mapstructure:"endpoint"`
	TimeoutMinSeconds int    `mapstructure:"timeout_min_seconds"`
	TimeoutMaxSeconds int    `mapstructure:"timeout_max_seconds"`
}

// InputConfig locates the input tables.
type InputConfig struct {
	PostalCodes string `mapstructure:"postal_codes"`
	StoreList   string `mapstructure:"store_list"`
}

// OutputConfig locates the output ledger.
type OutputConfig struct {
	Ledger string `mapstructure:"ledger"`
}

// MonitorConfig controls the metrics/health endpoint.
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.source", "Kroger")
	v.SetDefault("pipeline.workers", 12)
	v.SetDefault("pipeline.retry_budget", 3)
	v.SetDefault("pipeline.backoff_min_seconds", 5)
	v.SetDefault("pipeline.backoff_max_seconds", 15)
	v.SetDefault("pipeline.jitter_min_seconds", 1)
	v.SetDefault("pipeline.jitter_max_seconds", 3)
	v.SetDefault("pipeline.cooldown_min_seconds", 5)
	v.SetDefault("pipeline.cooldown_max_seconds", 15)
	v.SetDefault("pipeline.requests_per_second", 0)
	v.SetDefault("http.endpoint", "https://www.kroger.com/atlas/v1/modality/options")
	v.SetDefault("http.timeout_min_seconds", 10)
	v.SetDefault("http.timeout_max_seconds", 100)
	v.SetDefault("input.postal_codes", "input/USZipCodes.csv")
	v.SetDefault("input.store_list", "input/StoreList.csv")
	v.SetDefault("output.ledger", "output/availability.csv")
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Pipeline.RetryBudget <= 0 {
		return fmt.Errorf("pipeline.retry_budget must be > 0")
	}
	if c.Pipeline.BackoffMaxSeconds < c.Pipeline.BackoffMinSeconds {
		return fmt.Errorf("pipeline.backoff_max_seconds must be >= pipeline.backoff_min_seconds")
	}
	if c.Pipeline.JitterMaxSeconds < c.Pipeline.JitterMinSeconds {
		return fmt.Errorf("pipeline.jitter_max_seconds must be >= pipeline.jitter_min_seconds")
	}
	if c.Pipeline.CooldownMaxSeconds < c.Pipeline.CooldownMinSeconds {
		return fmt.Errorf("pipeline.cooldown_max_seconds must be >= pipeline.cooldown_min_seconds")
	}
	if c.HTTP.Endpoint == "" {
		return fmt.Errorf("http.endpoint must be set")
	}
	if c.HTTP.TimeoutMinSeconds <= 0 {
		return fmt.Errorf("http.timeout_min_seconds must be > 0")
	}
	if c.HTTP.TimeoutMaxSeconds < c.HTTP.TimeoutMinSeconds {
		return fmt.Errorf("http.timeout_max_seconds must be >= http.timeout_min_seconds")
	}
	if c.Output.Ledger == "" {
		return fmt.Errorf("output.ledger must be set")
	}
	if c.Monitor.Enabled && c.Monitor.Port <= 0 {
		return fmt.Errorf("monitor.port must be > 0 when monitor is enabled")
	}
	return nil
}

// BackoffRange returns the retry backoff bounds as durations.
func (c Config) BackoffRange() (time.Duration, time.Duration) {
	return secondsRange(c.Pipeline.BackoffMinSeconds, c.Pipeline.BackoffMaxSeconds)
}

// JitterRange returns the inter-submission jitter bounds.
func (c Config) JitterRange() (time.Duration, time.Duration) {
	return secondsRange(c.Pipeline.JitterMinSeconds, c.Pipeline.JitterMaxSeconds)
}

// CooldownRange returns the post-success cooldown bounds.
func (c Config) CooldownRange() (time.Duration, time.Duration) {
	return secondsRange(c.Pipeline.CooldownMinSeconds, c.Pipeline.CooldownMaxSeconds)
}

// TimeoutRange returns the per-request timeout bounds.
func (c Config) TimeoutRange() (time.Duration, time.Duration) {
	return secondsRange(c.HTTP.TimeoutMinSeconds, c.HTTP.TimeoutMaxSeconds)
}

func secondsRange(min, max int) (time.Duration, time.Duration) {
	return time.Duration(min) * time.Second, time.Duration(max) * time.Second
}
