package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grocerytrack/modality-scout/internal/brand"
	"github.com/grocerytrack/modality-scout/internal/config"
	"github.com/grocerytrack/modality-scout/internal/fetcher"
	"github.com/grocerytrack/modality-scout/internal/ledger"
	"github.com/grocerytrack/modality-scout/internal/logging"
	"github.com/grocerytrack/modality-scout/internal/metrics"
	"github.com/grocerytrack/modality-scout/internal/monitor"
	"github.com/grocerytrack/modality-scout/internal/scheduler"
	"github.com/grocerytrack/modality-scout/internal/source"
	"github.com/grocerytrack/modality-scout/internal/transform"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs the availability pipeline",
		Long: `Loads the postal-code and store-list tables, filters out postal codes
already present in the output ledger, and drains the remainder through the
concurrent fetch pipeline.`,
		RunE: runPipeline,
	}
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logging.Flush(logger) //nolint:errcheck // best-effort flush

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mon *monitor.Server
	if cfg.Monitor.Enabled {
		mon = monitor.New(cfg.Monitor.Port, logger.Named("monitor"))
		mon.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mon.Shutdown(shutdownCtx); err != nil {
				logger.Warn("monitor shutdown failed", zap.Error(err))
			}
		}()
	}

	tasks, err := source.LoadPostalCodes(cfg.Input.PostalCodes)
	if err != nil {
		return fmt.Errorf("load postal codes: %w", err)
	}

	index, err := loadBrandIndex(cfg, logger)
	if err != nil {
		return err
	}
	resolver := brand.NewResolver(index, logger.Named("brand"))

	sink, err := ledger.Open(cfg.Output.Ledger, logger.Named("ledger"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	dedup, err := ledger.LoadDedup(cfg.Output.Ledger)
	if err != nil {
		return fmt.Errorf("load dedup index: %w", err)
	}

	pending := source.FilterPending(tasks, dedup, cfg.Pipeline.States)
	logger.Info("task list built",
		zap.Int("input_tasks", len(tasks)),
		zap.Int("already_recorded", len(dedup)),
		zap.Int("pending", len(pending)),
	)
	if len(pending) == 0 {
		logger.Info("nothing to do, ledger is up to date")
		return nil
	}

	timeoutMin, timeoutMax := cfg.TimeoutRange()
	fetch := fetcher.New(fetcher.Config{
		Endpoint:   cfg.HTTP.Endpoint,
		TimeoutMin: timeoutMin,
		TimeoutMax: timeoutMax,
	}, logger.Named("fetcher"))

	transformer := transform.New(cfg.Pipeline.Source, resolver, logger.Named("transform"))

	backoffMin, backoffMax := cfg.BackoffRange()
	jitterMin, jitterMax := cfg.JitterRange()
	cooldownMin, cooldownMax := cfg.CooldownRange()
	sched := scheduler.New(fetch, transformer, sink, scheduler.Config{
		Source:            cfg.Pipeline.Source,
		Workers:           cfg.Pipeline.Workers,
		RetryBudget:       cfg.Pipeline.RetryBudget,
		BackoffMin:        backoffMin,
		BackoffMax:        backoffMax,
		JitterMin:         jitterMin,
		JitterMax:         jitterMax,
		CooldownMin:       cooldownMin,
		CooldownMax:       cooldownMax,
		RequestsPerSecond: cfg.Pipeline.RequestsPerSecond,
	}, logger.Named("scheduler"))

	summary := sched.Run(ctx, pending)
	logger.Info("run summary",
		zap.Int("written", summary.Written),
		zap.Int("malformed", summary.Malformed),
		zap.Int("failed", summary.Failed),
		zap.String("ledger", sink.Path()),
	)
	return nil
}

// loadBrandIndex reads the store list when one is configured. Without it the
// resolver falls back to fuzzy banner matching.
func loadBrandIndex(cfg config.Config, logger *zap.Logger) (*brand.Index, error) {
	if cfg.Input.StoreList == "" {
		logger.Warn("no store list configured, brand resolution degrades to banner matching")
		return nil, nil
	}
	rows, err := source.LoadStoreList(cfg.Input.StoreList)
	if err != nil {
		return nil, fmt.Errorf("load store list: %w", err)
	}
	index := brand.NewIndex(rows)
	logger.Info("store index loaded", zap.Int("locations", index.Len()))
	return index, nil
}
