// Command lake-pipeline performs one round trip: it uploads the sample dataset
// to the object store, reads it back, loads it into SQLite and prints the
// report battery.
//
// Configuration comes from the YAML file named by LAKE_CONFIG and LAKE_*
// environment overrides.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"go-lake-pipeline/internal/config"
	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/pipeline"
	"go-lake-pipeline/internal/report"
	"go-lake-pipeline/pkg/logging"
)

func main() {
	out := report.NewRenderer(os.Stdout)
	if err := run(out); err != nil {
		label := "Error"
		if pipeline.IsStoreError(err) {
			label = "Object store error"
		}
		out.Failure(label, err)
		os.Exit(1)
	}
}

func run(out *report.Renderer) error {
	log, sync, err := logging.NewLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer sync()

	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gw, err := objstore.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("creating object store gateway: %w", err)
	}
	defer func() { _ = gw.Close() }()

	// One-shot process: nothing scrapes it, so keep metrics off the default registry.
	m := metrics.NewPipelineMetricsWithRegistry(prometheus.NewRegistry())

	p, err := pipeline.New(cfg.Pipeline(), gw,
		pipeline.WithLogger(log),
		pipeline.WithRenderer(out),
		pipeline.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("pipeline completed", "run", res.RunID, "reports", len(res.Reports), "duration", res.Duration)
	return nil
}
