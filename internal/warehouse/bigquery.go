package warehouse

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
)

// BigQuery implements Warehouse against one project/dataset.
type BigQuery struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQuery connects to the given project using ambient credentials
// (service-account file or workload identity, resolved by the client
// library).
func NewBigQuery(ctx context.Context, project, dataset string) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset}, nil
}

// Close releases the underlying client connection.
func (w *BigQuery) Close() error {
	return w.client.Close()
}

// LoadParquet implements Warehouse. The load runs with WRITE_TRUNCATE so a
// re-run of the batch replaces rather than duplicates rows.
func (w *BigQuery) LoadParquet(ctx context.Context, table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open payload %s: %w", path, err)
	}
	defer f.Close()

	source := bigquery.NewReaderSource(f)
	source.SourceFormat = bigquery.Parquet

	loader := w.client.Dataset(w.dataset).Table(table).LoaderFrom(source)
	loader.WriteDisposition = bigquery.WriteTruncate

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("start load job for %s: %w", table, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job %s: %w", job.ID(), err)
	}
	return nil
}

// Schema implements Warehouse.
func (w *BigQuery) Schema(ctx context.Context, table string) (bigquery.Schema, error) {
	md, err := w.client.Dataset(w.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("table metadata for %s: %w", table, err)
	}
	return md.Schema, nil
}

// UpdateSchema implements Warehouse. The update is guarded by the table's
// current etag so a concurrent metadata change fails fast instead of being
// clobbered.
func (w *BigQuery) UpdateSchema(ctx context.Context, table string, schema bigquery.Schema) error {
	t := w.client.Dataset(w.dataset).Table(table)
	md, err := t.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("table metadata for %s: %w", table, err)
	}
	if _, err := t.Update(ctx, bigquery.TableMetadataToUpdate{Schema: schema}, md.ETag); err != nil {
		return fmt.Errorf("update schema for %s: %w", table, err)
	}
	return nil
}
