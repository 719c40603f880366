package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"stockwatch/internal/config"
	"stockwatch/internal/domain/stock"
	"stockwatch/internal/health"
	"stockwatch/internal/infra/metrics"
	"stockwatch/internal/infra/template"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Force  bool
	DryRun bool
}

// NewRunCommand creates the run command.
func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check availability once and notify about newly available products",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "notify about every available product regardless of stored state")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the notification instead of sending it")

	return cmd
}

// runOnce wires the pipeline from configuration and performs one run.
func runOnce(ctx context.Context, cfg *config.Config, opts *RunOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	renderer, err := template.NewEngine()
	if err != nil {
		return fmt.Errorf("initializing template engine: %w", err)
	}

	sink, err := newSink(cfg, opts.DryRun, out)
	if err != nil {
		return err
	}

	sc := stock.StoreContext{Pincode: cfg.Store.Pincode, StoreID: cfg.Store.ID}
	engine := stock.NewEngine(backend, cfg.Timeouts.Store())
	watcher := stock.NewWatcher(newSource(cfg), engine, renderer, sink, stock.WatcherConfig{
		StoreContext:  sc,
		Recipient:     cfg.Telegram.ChannelID,
		SourceTimeout: cfg.Timeouts.Source(),
		SinkTimeout:   cfg.Timeouts.Sink(),
	}).
		WithFetchRecorder(health.NewHeartbeat(cfg.Health.TimestampFile)).
		WithObserver(metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job))

	report, err := watcher.Run(ctx, stock.RunOptions{Force: opts.Force || cfg.Run.ForceNotify})
	if err != nil {
		slog.Error("run failed",
			"run_id", report.RunID,
			"reason", metrics.Result(err),
			"error", err,
			"duration", report.Duration,
		)
		return err
	}

	slog.Info("run complete",
		"run_id", report.RunID,
		"available", report.Available,
		"unavailable", report.Unavailable,
		"notified", len(report.Notified),
		"forced", report.Forced,
		"duration", report.Duration,
	)
	for _, p := range report.Notified {
		slog.Debug("notified product", "run_id", report.RunID, "product_id", p.ProductID, "name", p.Name)
	}
	return nil
}
