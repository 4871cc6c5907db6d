package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/spboyer/streamauc/internal/collector"
	"github.com/spboyer/streamauc/internal/dataset"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/streaming"
	"github.com/spboyer/streamauc/internal/telemetry"
	"github.com/spboyer/streamauc/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var (
		configPath     string
		host           string
		port           int
		reportsDir     string
		allowedOrigins []string
		skipInvalid    bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dataset ...]",
		Short: "Serve live confusion counts, curves and AUC over HTTP",
		Long: `Start an HTTP server around a live accumulator.

Batches can be posted to /api/batches while readers query /api/summary,
/api/confusion, /api/roc, /api/pr and /api/auc. Prometheus metrics are served
on /metrics. Datasets given as arguments are streamed in the background after
the server starts.

The server binds to loopback by default; use --host to expose it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProjectConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			historyAgg, err := streaming.ParseAggregation(cfg.Report.HistoryAggregation)
			if err != nil {
				return fmt.Errorf("invalid report.history_aggregation: %w", err)
			}
			acc, err := newAccumulator(cfg)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			coll := collector.New(acc, collector.Options{
				Metrics:            telemetry.New(reg),
				HistoryAggregation: historyAgg,
				SkipInvalid:        skipInvalid,
			})

			logger := slog.Default()
			srv, err := webserver.New(webserver.Config{
				Port:           cfg.Server.Port,
				Host:           host,
				Live:           coll,
				ReportsDir:     reportsDir,
				Gatherer:       reg,
				AllowedOrigins: allowedOrigins,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(args) > 0 {
				go preload(ctx, coll, args, cfg.Input, logger)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "streamauc server listening on http://%s\n", srv.Addr()) //nolint:errcheck
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Project config file (default: nearest .streamauc.yaml)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Address to bind")
	cmd.Flags().IntVarP(&port, "port", "p", webserver.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "Directory of saved JSON reports to serve under /api/reports")
	cmd.Flags().StringSliceVar(&allowedOrigins, "allow-origin", nil, "Additional CORS origins")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", false, "Skip malformed batches instead of stopping a preload")

	return cmd
}

// preload streams datasets into a running server's collector. Errors are
// logged; the server keeps serving whatever was applied.
func preload(ctx context.Context, coll *collector.Collector, paths []string, in projectconfig.InputConfig, logger *slog.Logger) {
	sources := make([]dataset.Source, 0, len(paths))
	for _, path := range paths {
		src, err := dataset.Open(ctx, path, dataset.Options{
			Format:       in.Format,
			BatchSize:    in.BatchSize,
			NumClasses:   in.Classes,
			LabelColumn:  in.LabelColumn,
			ScoreColumns: in.ScoreColumns,
		})
		if err != nil {
			logger.Error("failed to open dataset", "path", path, "error", err)
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return
	}

	err := coll.Ingest(ctx, sources...)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("preload cancelled")
	case err != nil:
		logger.Error("preload stopped", "error", err)
	default:
		stats := coll.Stats()
		logger.Info("preload complete", "samples", stats.Samples, "batches", stats.Batches, "rejected", stats.Rejected)
	}
}
