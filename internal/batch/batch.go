// Package batch drives one full extraction-and-load pass: every table the
// DAP tool lists is snapshotted, loaded into the warehouse, and has its
// column descriptions reconciled from the latest schema document.
//
// Tables are processed strictly one at a time. A failure anywhere inside a
// table's processing is logged with the table name and the batch moves on
// to the next table; there is no retry and no abort.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"dapsync/internal/dap"
	"dapsync/internal/metrics"
	"dapsync/internal/reconcile"
	"dapsync/internal/schemadoc"
	"dapsync/internal/warehouse"
)

// Logger is the minimal logging surface the runner needs.
type Logger interface {
	Printf(format string, v ...any)
}

// Extractor is the slice of the DAP CLI the runner drives. *dap.CLI
// implements it; tests use fakes.
type Extractor interface {
	ListTables(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, table string) error
	ExportSchema(ctx context.Context, table string) error
	JobID() (string, error)
	StagedFile(jobID string) (string, error)
	Cleanup(jobID string) error
}

// Runner executes the batch. Fields are exported seams: construct with
// NewRunner, then override in tests as needed.
type Runner struct {
	Extractor Extractor
	Warehouse warehouse.Warehouse
	Logger    Logger

	// DownloadsDir is where the DAP tool leaves schema documents.
	DownloadsDir string

	// LoadDoc and LatestDoc default to the schemadoc package; RowCount
	// defaults to reading the parquet footer.
	LoadDoc   func(path string) (*schemadoc.Doc, error)
	LatestDoc func(dir, table string) (string, bool, error)
	RowCount  func(path string) (int64, error)
}

// NewRunner wires a Runner with production defaults.
func NewRunner(ext Extractor, wh warehouse.Warehouse, downloadsDir string) *Runner {
	return &Runner{
		Extractor:    ext,
		Warehouse:    wh,
		Logger:       log.Default(),
		DownloadsDir: downloadsDir,
		LoadDoc:      schemadoc.Load,
		LatestDoc:    schemadoc.LatestVersionFile,
		RowCount:     parquetRowCount,
	}
}

// Table outcome statuses, used in logs and as the metrics "status" label.
const (
	statusOK      = "ok"
	statusError   = "error"
	statusSkipped = "skipped"
)

// Run processes every listed table. It returns an error only when the
// table listing itself fails; per-table failures are logged and counted,
// never returned.
func (r *Runner) Run(ctx context.Context) error {
	tables, err := r.Extractor.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		r.Logger.Printf("no tables found")
		return nil
	}

	for _, table := range tables {
		start := time.Now()

		status, err := r.processTable(ctx, table)
		if err != nil {
			status = statusError
			r.Logger.Printf("table %s: %v", table, err)
		}

		labels := metrics.Labels{"status": status}
		metrics.IncCounter(metrics.TablesTotal, 1, labels)
		metrics.ObserveHistogram(metrics.TableDurationSeconds, time.Since(start).Seconds(), labels)
	}
	return nil
}

// processTable runs the extract -> load -> schema-sync -> cleanup sequence
// for one table and reports its outcome status.
func (r *Runner) processTable(ctx context.Context, table string) (string, error) {
	if err := r.Extractor.Snapshot(ctx, table); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	jobID, err := r.Extractor.JobID()
	if err != nil {
		return "", err
	}

	payload, err := r.Extractor.StagedFile(jobID)
	if errors.Is(err, dap.ErrNoData) {
		r.Logger.Printf("table %s: no parquet files for job %s, skipping", table, jobID)
		return statusSkipped, nil
	}
	if err != nil {
		return "", err
	}

	// Row count comes from the parquet footer and is observability only;
	// a footer we cannot read does not fail the table.
	if rows, err := r.RowCount(payload); err == nil {
		r.Logger.Printf("table %s: staged %d rows (job %s)", table, rows, jobID)
		metrics.IncCounter(metrics.RowsLoadedTotal, float64(rows), nil)
	}

	if err := r.Warehouse.LoadParquet(ctx, table, payload); err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	if err := r.Extractor.ExportSchema(ctx, table); err != nil {
		return "", fmt.Errorf("schema export: %w", err)
	}

	if err := r.syncSchema(ctx, table); err != nil {
		return "", fmt.Errorf("schema sync: %w", err)
	}

	if err := r.Extractor.Cleanup(jobID); err != nil {
		return "", fmt.Errorf("cleanup job %s: %w", jobID, err)
	}

	r.Logger.Printf("table %s: loaded", table)
	return statusOK, nil
}

// syncSchema merges the latest schema document's descriptions into the
// live warehouse schema. A table without any schema document is not an
// error: the load stands and reconciliation is skipped.
func (r *Runner) syncSchema(ctx context.Context, table string) error {
	path, ok, err := r.LatestDoc(r.DownloadsDir, table)
	if err != nil {
		return err
	}
	if !ok {
		r.Logger.Printf("table %s: no schema document, skipping reconciliation", table)
		return nil
	}

	doc, err := r.LoadDoc(path)
	if err != nil {
		return err
	}

	current, err := r.Warehouse.Schema(ctx, table)
	if err != nil {
		return err
	}

	merged, stats := reconcile.Columns(current, doc.Properties())
	if err := r.Warehouse.UpdateSchema(ctx, table, merged); err != nil {
		return err
	}

	if stats.Matched == 0 {
		// The merge is permissive, so an empty or mis-keyed document
		// produces a clean no-op. Surface that here.
		r.Logger.Printf("table %s: schema document %s matched no columns", table, path)
	} else {
		r.Logger.Printf("table %s: descriptions updated=%d truncated=%d", table, stats.Updated, stats.Truncated)
	}
	metrics.IncCounter(metrics.DescriptionsUpdatedTotal, float64(stats.Updated), nil)
	metrics.IncCounter(metrics.DescriptionsTruncatedTotal, float64(stats.Truncated), nil)
	return nil
}

func parquetRowCount(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return 0, err
	}
	return pf.NumRows(), nil
}
