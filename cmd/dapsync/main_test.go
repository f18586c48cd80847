package main

import (
	"testing"

	"dapsync/internal/config"
	"dapsync/internal/metrics"
)

func TestInitMetrics_DisabledBackends(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{name: "empty", backend: ""},
		{name: "none", backend: "none"},
		{name: "unknown", backend: "statsd"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			shutdown := initMetrics(config.Config{MetricsBackend: tc.backend}, "run-1")
			if shutdown == nil {
				t.Fatalf("initMetrics() returned nil shutdown func")
			}
			// Calling it must be a no-op, repeatedly.
			shutdown()
			shutdown()
		})
	}
}

func TestInitMetrics_Datadog(t *testing.T) {
	t.Cleanup(func() { metrics.SetBackend(nil) })

	shutdown := initMetrics(config.Config{MetricsBackend: "datadog"}, "run-1")
	if shutdown == nil {
		t.Fatalf("initMetrics() returned nil shutdown func")
	}
	// With empty buffers the final flush submits nothing, so shutdown is
	// safe without network access.
	shutdown()
}
