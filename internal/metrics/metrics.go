// Package metrics is a tiny facade between the batch driver and whatever
// metrics backend is configured. The core code emits counters and
// histograms by name; backends decide what to do with them. The default
// backend is a nop, so an unconfigured process pays one map-free call per
// emission and nothing else.
package metrics

import "sync"

// Metric names emitted by the batch driver. Backends switch on these.
const (
	// TablesTotal counts table outcomes; label "status" is one of
	// ok | error | skipped.
	TablesTotal = "dap_tables_total"

	// RowsLoadedTotal counts rows staged for loading, read from the
	// parquet footer.
	RowsLoadedTotal = "dap_rows_loaded_total"

	// DescriptionsUpdatedTotal counts column descriptions taken from a
	// schema document during reconciliation.
	DescriptionsUpdatedTotal = "dap_descriptions_updated_total"

	// DescriptionsTruncatedTotal counts descriptions cut to the warehouse
	// length limit. Truncation is silent in the merge itself; this counter
	// is the only place it surfaces.
	DescriptionsTruncatedTotal = "dap_descriptions_truncated_total"

	// TableDurationSeconds observes wall time per table; label "status"
	// as for TablesTotal.
	TableDurationSeconds = "dap_table_duration_seconds"
)

// Labels are free-form metric dimensions.
type Labels map[string]string

// Backend receives emitted metrics.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush pushes any buffered metrics out. Called at least once at
	// process shutdown.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	current Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. Passing nil restores
// the nop backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		current = nopBackend{}
		return
	}
	current = b
}

func get() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// IncCounter adds delta to the named counter.
func IncCounter(name string, delta float64, labels Labels) {
	get().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of the named histogram.
func ObserveHistogram(name string, value float64, labels Labels) {
	get().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error {
	return get().Flush()
}
