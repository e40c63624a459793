package source

import "sort"

// MemorySource presents caller-supplied row maps as a tabular source. Row
// numbering is offset by one so positions line up with a workbook that has a
// header row.
type MemorySource struct {
	rows []map[string]any
}

// NewMemorySource wraps an in-memory row set.
func NewMemorySource(rows []map[string]any) *MemorySource {
	return &MemorySource{rows: rows}
}

// Prepare returns the union of columns, up to limit non-empty rows, and the
// total non-empty row count. Every returned record carries every column, with
// nil for absent values. Columns are ordered by first row of appearance,
// sorted by name within a row since Go maps carry no key order.
func (s *MemorySource) Prepare(limit int) (columns []string, rows []Row, totalRows int) {
	if len(s.rows) == 0 {
		return nil, nil, 0
	}

	seen := make(map[string]bool)
	for _, record := range s.rows {
		var fresh []string
		for key := range record {
			if !seen[key] {
				seen[key] = true
				fresh = append(fresh, key)
			}
		}
		sort.Strings(fresh)
		columns = append(columns, fresh...)
	}

	for index, raw := range s.rows {
		normalized := make(map[string]any, len(columns))
		for _, column := range columns {
			normalized[column] = raw[column]
		}
		if rowIsEmpty(normalized) {
			continue
		}
		totalRows++
		if len(rows) < limit {
			rows = append(rows, Row{Number: index + 2, Record: normalized})
		}
	}
	return columns, rows, totalRows
}
