// Package reconcile merges field descriptions from a DAP schema document
// into a BigQuery column schema.
//
// The warehouse owns the structure: names, types, modes and nesting are
// never changed, columns are never added or removed. The document owns the
// content: where it documents a column, its description wins. The merge is
// deliberately permissive — unknown document keys are ignored and missing
// keys mean "no information", so a mis-keyed document produces a no-op
// merge rather than an error. Callers that care can inspect the returned
// Stats to detect a silently-empty merge.
package reconcile

import (
	"cloud.google.com/go/bigquery"

	"dapsync/internal/schemadoc"
)

// MaxDescriptionLen is the warehouse's column-description length limit.
// Longer document descriptions are silently truncated to this many
// characters on merge.
const MaxDescriptionLen = 1024

// Stats summarizes what one Columns call changed.
type Stats struct {
	// Matched counts schema nodes (at any depth) whose name appeared in
	// the document.
	Matched int
	// Updated counts nodes whose description was taken from the document.
	Updated int
	// Truncated counts nodes whose document description exceeded
	// MaxDescriptionLen and was cut.
	Truncated int
}

func (s *Stats) add(o Stats) {
	s.Matched += o.Matched
	s.Updated += o.Updated
	s.Truncated += o.Truncated
}

// Columns returns a new schema with descriptions merged from props.
//
// The input schema is never mutated. Output order equals input order; the
// iteration order of props is irrelevant since matching is by name lookup
// at each nesting level. A node whose name is absent from props passes
// through as the original node, subtree included. RECORD nodes recurse
// into the FieldSpec's nested properties; an absent nested map acts as
// empty, so the children pass through with their descriptions intact.
func Columns(cols bigquery.Schema, props map[string]schemadoc.FieldSpec) (bigquery.Schema, Stats) {
	out := make(bigquery.Schema, 0, len(cols))
	var stats Stats

	for _, field := range cols {
		spec, ok := props[field.Name]
		if !ok {
			out = append(out, field)
			continue
		}
		stats.Matched++

		description := field.Description
		if spec.Description != nil {
			description = *spec.Description
			if truncated := truncate(description); truncated != description {
				description = truncated
				stats.Truncated++
			}
			stats.Updated++
		}

		cp := *field
		cp.Description = description
		if field.Type == bigquery.RecordFieldType {
			children, childStats := Columns(field.Schema, spec.Properties)
			stats.add(childStats)
			cp.Schema = children
		}
		out = append(out, &cp)
	}

	return out, stats
}

func truncate(s string) string {
	if len(s) <= MaxDescriptionLen {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxDescriptionLen {
		return s
	}
	return string(r[:MaxDescriptionLen])
}
