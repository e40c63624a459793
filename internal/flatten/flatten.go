// Package flatten converts arbitrary nested JSON into flat tabular records
// with deterministic column ordering, ready for the mapping engine.
package flatten

import (
	"encoding/json"
	"strings"

	"github.com/annolab/ingest/internal/transform"
)

// Record is a flattened row: column name to scalar value, columns kept in
// first-insertion order.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set stores a column value, preserving first-insertion order.
func (r *Record) Set(key string, value any) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for a column.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns column names in insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// Map returns the record as a plain map for the mapping engine.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Flatten walks a decoded JSON value producing a flat record. Nested object
// keys become dotted paths; a list of scalars becomes one pipe-joined string;
// a list containing nested structure is serialized as compact JSON; an empty
// list yields an empty string; scalar leaves are stored directly.
func Flatten(v any) *Record {
	record := NewRecord()
	flattenInto(v, "", record)
	return record
}

func flattenInto(v any, prefix string, out *Record) {
	switch val := v.(type) {
	case *Object:
		for _, key := range val.Keys() {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			child, _ := val.Get(key)
			flattenInto(child, next, out)
		}
	case []any:
		key := prefix
		if key == "" {
			key = "[]"
		}
		if len(val) == 0 {
			out.Set(key, "")
			return
		}
		if allScalars(val) {
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = transform.Stringify(item)
			}
			out.Set(key, strings.Join(parts, "|"))
			return
		}
		encoded, err := json.Marshal(val)
		if err != nil {
			out.Set(key, "")
			return
		}
		out.Set(key, string(encoded))
	default:
		key := prefix
		if key == "" {
			key = "value"
		}
		out.Set(key, v)
	}
}

func allScalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case *Object, []any:
			return false
		}
	}
	return true
}

// columnPriority lists columns pulled to the front of the ordering when
// present, in this order.
var columnPriority = []string{
	"id",
	"task_id",
	"taskId",
	"external_id",
	"externalId",
	"title",
	"name",
	"file",
	"file_name",
	"fileName",
	"media.url",
}

// OrderColumns returns the union of record columns in first-seen order, then
// moves known identifier/title/file columns to the front preserving relative
// order of the remainder.
func OrderColumns(records []*Record) []string {
	if len(records) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	var ordered []string
	for _, record := range records {
		for _, key := range record.Keys() {
			if !seen[key] {
				seen[key] = true
				ordered = append(ordered, key)
			}
		}
	}

	prioritized := make([]string, 0, len(ordered))
	inFront := make(map[string]bool)
	for _, key := range columnPriority {
		if seen[key] {
			prioritized = append(prioritized, key)
			inFront[key] = true
		}
	}
	for _, key := range ordered {
		if !inFront[key] {
			prioritized = append(prioritized, key)
		}
	}
	return prioritized
}
