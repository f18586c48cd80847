// Package warehouse is the destination side of the batch: loading staged
// payloads into tables and reading back or replacing their column schemas.
// Tables are assumed pre-provisioned; nothing here creates them.
package warehouse

import (
	"context"

	"cloud.google.com/go/bigquery"
)

// Warehouse is the minimal surface the batch driver needs. The real
// implementation is BigQuery; tests use fakes.
type Warehouse interface {
	// LoadParquet replaces the table's contents with the parquet file at
	// path (full overwrite). It blocks until the load job completes.
	LoadParquet(ctx context.Context, table, path string) error

	// Schema fetches the table's live column schema.
	Schema(ctx context.Context, table string) (bigquery.Schema, error)

	// UpdateSchema replaces the table's column schema. Callers pass a tree
	// derived from Schema with only descriptions changed.
	UpdateSchema(ctx context.Context, table string, schema bigquery.Schema) error
}
