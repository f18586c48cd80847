// Package schemadoc reads the versioned field-description documents the DAP
// CLI writes next to its staging directories. A document maps field names to
// descriptions, nesting through `properties` for record-shaped fields.
package schemadoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrNotFound is returned by Load when the document path does not exist.
var ErrNotFound = errors.New("schema document not found")

// ErrMalformed is returned by Load when the file content is not valid JSON.
var ErrMalformed = errors.New("schema document is not valid JSON")

// FieldSpec describes one documented field.
//
// Description is a pointer so "key absent" (keep the warehouse description)
// is distinguishable from "key present and empty" (set it to empty).
// Properties is non-nil only for fields documented as nested records.
type FieldSpec struct {
	Description *string              `json:"description,omitempty"`
	Properties  map[string]FieldSpec `json:"properties,omitempty"`
}

// Doc is a parsed schema-description document.
//
// The top-level `schema` object has the same shape as a FieldSpec container:
// its Properties map keys the table's top-level columns. A document without
// a `schema` key parses to an empty Doc; no validation beyond JSON
// well-formedness happens here, so a mis-keyed document simply carries no
// field information.
type Doc struct {
	Schema FieldSpec `json:"schema"`
}

// Properties returns the top-level field map, never nil.
func (d *Doc) Properties() map[string]FieldSpec {
	if d == nil || d.Schema.Properties == nil {
		return map[string]FieldSpec{}
	}
	return d.Schema.Properties
}

// Load reads and parses the document at path.
//
// Errors:
//   - ErrNotFound (wrapped) if path does not exist.
//   - ErrMalformed (wrapped) if the content is not valid JSON.
func Load(path string) (*Doc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read schema document %s: %w", path, err)
	}

	var doc Doc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return &doc, nil
}

// LatestVersionFile selects the newest schema document for a table.
//
// It scans dir for names matching <table>_schema_version_<N>.json and
// returns the path with the largest integer N. When nothing matches it
// returns ok=false and no error: callers treat that as "no schema update
// available" and skip reconciliation for the table.
func LatestVersionFile(dir, table string) (path string, ok bool, err error) {
	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(table) + `_schema_version_(\d+)\.json$`)
	if err != nil {
		return "", false, fmt.Errorf("schema file pattern for table %q: %w", table, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("scan schema directory %s: %w", dir, err)
	}

	highest := 0
	latest := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			// \d+ guarantees digits; only overflow lands here.
			continue
		}
		if v > highest {
			highest = v
			latest = e.Name()
		}
	}

	if latest == "" {
		return "", false, nil
	}
	return filepath.Join(dir, latest), true, nil
}
