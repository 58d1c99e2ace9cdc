// Command lake-pipeline-api serves pipeline runs and their history over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-lake-pipeline/internal/api"
	"go-lake-pipeline/internal/api/handler"
	"go-lake-pipeline/internal/config"
	"go-lake-pipeline/internal/metrics"
	"go-lake-pipeline/internal/objstore"
	"go-lake-pipeline/internal/pipeline"
	"go-lake-pipeline/internal/store"
	"go-lake-pipeline/pkg/logging"
	"go-lake-pipeline/pkg/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
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

	// Init DB
	st, err := store.Open(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer func() { _ = st.Close() }()

	gw, err := objstore.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("creating object store gateway: %w", err)
	}
	defer func() { _ = gw.Close() }()

	p, err := pipeline.New(cfg.Pipeline(), gw,
		pipeline.WithLogger(log.WithName("pipeline")),
		pipeline.WithMetrics(metrics.NewPipelineMetrics()),
	)
	if err != nil {
		return err
	}

	// Create router and register API routes
	r := router.New(router.WithLogger(log.WithName("http")))
	api.RegisterRoutes(r, handler.NewRunHandler(p, st, log.WithName("runs")), prometheus.DefaultGatherer)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "addr", cfg.ListenAddr, "backend", cfg.Store.Backend, "bucket", cfg.Bucket)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
