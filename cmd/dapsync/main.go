package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"dapsync/internal/batch"
	"dapsync/internal/config"
	"dapsync/internal/dap"
	"dapsync/internal/metrics"
	"dapsync/internal/metrics/datadog"
	"dapsync/internal/warehouse"
)

// main is the entry point for the dapsync binary. It reads the environment
// into a config, optionally initializes a metrics backend, and runs one
// batch pass over all tables. There are no flags; every knob is an
// environment variable.
func main() {
	log.Printf("starting DAP to BigQuery batch")

	cfg := config.FromEnv()
	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Field, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid")
	}

	// One id per batch run, tagged onto every metric series so overlapping
	// scheduled runs stay distinguishable.
	runID := uuid.New().String()
	log.Printf("run id %s", runID)

	shutdownMetrics := initMetrics(cfg, runID)
	defer shutdownMetrics()

	ctx := context.Background()
	start := time.Now()

	wh, err := warehouse.NewBigQuery(ctx, cfg.Project, cfg.Dataset)
	if err != nil {
		fatalf("bigquery: %v", err)
	}
	defer wh.Close()

	cli := dap.New(dap.Config{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecret,
		Namespace:    cfg.Namespace,
		DownloadsDir: cfg.DownloadsDir,
	})

	runner := batch.NewRunner(cli, wh, cfg.DownloadsDir)
	if err := runner.Run(ctx); err != nil {
		log.Printf("batch: %v", err)
		shutdownMetrics()
		os.Exit(1)
	}

	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// initMetrics installs the configured metrics backend and returns the
// shutdown function to run at exit. The returned function is safe to call
// more than once only for the nop backend; callers on the error path call
// it exactly once before exiting.
func initMetrics(cfg config.Config, runID string) func() {
	switch cfg.MetricsBackend {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			RunName: runID,
			Tags:    datadog.ParseTagsCSV(cfg.MetricsTags),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=datadog run=%s", runID)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}

	case "", "none":
		// metrics disabled; nop backend remains
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", cfg.MetricsBackend)
		return func() {}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
