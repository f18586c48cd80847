package reconcile

import (
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"

	"dapsync/internal/schemadoc"
)

func strptr(s string) *string { return &s }

func leaf(name string, typ bigquery.FieldType, desc string) *bigquery.FieldSchema {
	return &bigquery.FieldSchema{Name: name, Type: typ, Required: true, Description: desc}
}

func record(name, desc string, children ...*bigquery.FieldSchema) *bigquery.FieldSchema {
	return &bigquery.FieldSchema{
		Name:        name,
		Type:        bigquery.RecordFieldType,
		Description: desc,
		Schema:      children,
	}
}

func TestColumns_EmptyPropsIsIdentity(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{
		leaf("id", bigquery.IntegerFieldType, "kept"),
		record("user", "u",
			leaf("email", bigquery.StringFieldType, "e"),
		),
	}

	out, stats := Columns(in, nil)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("Columns(in, nil)=%v, want input unchanged", out)
	}
	if stats != (Stats{}) {
		t.Fatalf("stats=%+v, want zero", stats)
	}
	// Unmatched nodes must be the original nodes, not copies.
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] is a copy, want pass-through of the original node", i)
		}
	}
}

func TestColumns_SetsDescription(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{leaf("id", bigquery.IntegerFieldType, "")}
	props := map[string]schemadoc.FieldSpec{
		"id": {Description: strptr("Primary key")},
	}

	out, stats := Columns(in, props)
	want := bigquery.Schema{leaf("id", bigquery.IntegerFieldType, "Primary key")}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("Columns()=%+v, want %+v", out[0], want[0])
	}
	if stats.Matched != 1 || stats.Updated != 1 || stats.Truncated != 0 {
		t.Fatalf("stats=%+v, want Matched=1 Updated=1", stats)
	}
	if in[0].Description != "" {
		t.Fatalf("input mutated: description=%q", in[0].Description)
	}
}

func TestColumns_MatchWithoutDescriptionKeepsExisting(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{leaf("state", bigquery.StringFieldType, "workflow state")}
	props := map[string]schemadoc.FieldSpec{"state": {}}

	out, stats := Columns(in, props)
	if out[0].Description != "workflow state" {
		t.Fatalf("description=%q, want existing retained", out[0].Description)
	}
	if stats.Matched != 1 || stats.Updated != 0 {
		t.Fatalf("stats=%+v, want Matched=1 Updated=0", stats)
	}
}

func TestColumns_EmptyDescriptionKeyClears(t *testing.T) {
	t.Parallel()

	// "description": "" is present information, distinct from an absent key.
	in := bigquery.Schema{leaf("old", bigquery.StringFieldType, "stale text")}
	props := map[string]schemadoc.FieldSpec{"old": {Description: strptr("")}}

	out, _ := Columns(in, props)
	if out[0].Description != "" {
		t.Fatalf("description=%q, want cleared", out[0].Description)
	}
}

func TestColumns_TruncatesTo1024(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", MaxDescriptionLen+500)
	in := bigquery.Schema{leaf("notes", bigquery.StringFieldType, "")}
	props := map[string]schemadoc.FieldSpec{"notes": {Description: &long}}

	out, stats := Columns(in, props)
	if got := out[0].Description; got != long[:MaxDescriptionLen] {
		t.Fatalf("description length=%d, want exactly first %d characters", len(got), MaxDescriptionLen)
	}
	if stats.Truncated != 1 {
		t.Fatalf("stats=%+v, want Truncated=1", stats)
	}
}

func TestColumns_TruncatesByCharactersNotBytes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("å", MaxDescriptionLen+1)
	in := bigquery.Schema{leaf("notes", bigquery.StringFieldType, "")}
	props := map[string]schemadoc.FieldSpec{"notes": {Description: &long}}

	out, stats := Columns(in, props)
	got := []rune(out[0].Description)
	if len(got) != MaxDescriptionLen {
		t.Fatalf("description runes=%d, want %d", len(got), MaxDescriptionLen)
	}
	if stats.Truncated != 1 {
		t.Fatalf("stats=%+v, want Truncated=1", stats)
	}
}

func TestColumns_ExactLimitNotTruncated(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("y", MaxDescriptionLen)
	in := bigquery.Schema{leaf("notes", bigquery.StringFieldType, "")}
	props := map[string]schemadoc.FieldSpec{"notes": {Description: &exact}}

	out, stats := Columns(in, props)
	if out[0].Description != exact {
		t.Fatalf("description changed at exact limit")
	}
	if stats.Truncated != 0 {
		t.Fatalf("stats=%+v, want Truncated=0", stats)
	}
}

func TestColumns_RecursesIntoRecords(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{
		record("user", "",
			leaf("email", bigquery.StringFieldType, ""),
			leaf("login", bigquery.StringFieldType, "unchanged"),
		),
	}
	props := map[string]schemadoc.FieldSpec{
		"user": {
			Properties: map[string]schemadoc.FieldSpec{
				"email": {Description: strptr("User email")},
			},
		},
	}

	out, stats := Columns(in, props)

	user := out[0]
	if user.Description != "" {
		t.Errorf("user description=%q, want unchanged (no description key)", user.Description)
	}
	if user.Schema[0].Description != "User email" {
		t.Errorf("user.email description=%q, want %q", user.Schema[0].Description, "User email")
	}
	// Child not mentioned in the nested properties passes through.
	if user.Schema[1] != in[0].Schema[1] {
		t.Errorf("user.login was copied, want the original node passed through")
	}
	if stats.Matched != 2 || stats.Updated != 1 {
		t.Errorf("stats=%+v, want Matched=2 Updated=1", stats)
	}
	// Structure preserved.
	if user.Type != bigquery.RecordFieldType || user.Name != "user" || len(user.Schema) != 2 {
		t.Errorf("record structure changed: %+v", user)
	}
}

func TestColumns_RecordWithoutNestedPropertiesKeepsChildDescriptions(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{
		record("meta", "",
			leaf("created_at", bigquery.TimestampFieldType, "creation time"),
		),
	}
	props := map[string]schemadoc.FieldSpec{
		"meta": {Description: strptr("Row metadata")},
	}

	out, _ := Columns(in, props)
	if out[0].Description != "Row metadata" {
		t.Fatalf("meta description=%q", out[0].Description)
	}
	// Children are not cleared, only left as-is.
	if out[0].Schema[0].Description != "creation time" {
		t.Fatalf("child description=%q, want retained", out[0].Schema[0].Description)
	}
}

func TestColumns_PreservesOrderRegardlessOfPropKeys(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{
		leaf("c", bigquery.StringFieldType, ""),
		leaf("a", bigquery.StringFieldType, ""),
		leaf("b", bigquery.StringFieldType, ""),
	}
	props := map[string]schemadoc.FieldSpec{
		"a": {Description: strptr("A")},
		"b": {Description: strptr("B")},
		"c": {Description: strptr("C")},
	}

	out, _ := Columns(in, props)
	var names []string
	for _, f := range out {
		names = append(names, f.Name)
	}
	if !reflect.DeepEqual(names, []string{"c", "a", "b"}) {
		t.Fatalf("order=%v, want input order preserved", names)
	}
}

func TestColumns_ExtraDocEntriesNeverAddColumns(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{leaf("id", bigquery.IntegerFieldType, "")}
	props := map[string]schemadoc.FieldSpec{
		"id":      {Description: strptr("Primary key")},
		"phantom": {Description: strptr("not a real column")},
	}

	out, stats := Columns(in, props)
	if len(out) != 1 || out[0].Name != "id" {
		t.Fatalf("Columns()=%v, want only the original column", out)
	}
	if stats.Matched != 1 {
		t.Fatalf("stats=%+v, want Matched=1", stats)
	}
}

func TestColumns_PreservesModeAndType(t *testing.T) {
	t.Parallel()

	in := bigquery.Schema{
		{Name: "tags", Type: bigquery.StringFieldType, Repeated: true, Description: ""},
		{Name: "id", Type: bigquery.IntegerFieldType, Required: true, Description: ""},
	}
	props := map[string]schemadoc.FieldSpec{
		"tags": {Description: strptr("Labels")},
		"id":   {Description: strptr("Primary key")},
	}

	out, _ := Columns(in, props)
	if !out[0].Repeated || out[0].Required {
		t.Errorf("tags mode changed: %+v", out[0])
	}
	if !out[1].Required || out[1].Repeated {
		t.Errorf("id mode changed: %+v", out[1])
	}
	if out[0].Type != bigquery.StringFieldType || out[1].Type != bigquery.IntegerFieldType {
		t.Errorf("types changed: %v %v", out[0].Type, out[1].Type)
	}
}
