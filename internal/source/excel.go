// Package source reads tabular rows out of workbook files and in-memory row
// sets, presenting both through the same row-and-number shape the mapping
// engine consumes.
package source

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data row from a source: its 1-based position in the source
// (the header row counts as row 1) and the column-to-value record.
type Row struct {
	Number int
	Record map[string]any
}

// Preview is a bounded read of a workbook sheet.
type Preview struct {
	Sheet     string
	Columns   []string
	Rows      []Row
	TotalRows int
}

// ExcelSource reads a .xlsx workbook from disk.
type ExcelSource struct {
	path string
}

// NewExcelSource returns a source for the workbook at path. The file is
// opened per read, so the same source can be previewed and streamed.
func NewExcelSource(path string) *ExcelSource {
	return &ExcelSource{path: path}
}

// Preview reads up to limit data rows from the named sheet (first sheet when
// empty). TotalRows counts every non-blank data row, not just the previewed
// ones.
func (s *ExcelSource) Preview(sheet string, limit int) (*Preview, error) {
	it, err := s.Stream(sheet)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	result := &Preview{Sheet: it.Sheet(), Columns: it.Headers()}
	for it.Next() {
		result.TotalRows++
		if len(result.Rows) < limit {
			result.Rows = append(result.Rows, it.Row())
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Stream opens a lazy iterator over the named sheet's data rows. The caller
// must Close it to release the workbook handle.
func (s *ExcelSource) Stream(sheet string) (*RowIterator, error) {
	file, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook: %w", err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	resolved := sheet
	if resolved == "" {
		resolved = sheets[0]
	} else {
		found := false
		for _, name := range sheets {
			if name == resolved {
				found = true
				break
			}
		}
		if !found {
			file.Close()
			return nil, fmt.Errorf("sheet '%s' not found, available sheets: %s", sheet, strings.Join(sheets, ", "))
		}
	}

	rows, err := file.Rows(resolved)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("unable to read sheet '%s': %w", resolved, err)
	}

	it := &RowIterator{file: file, rows: rows, sheet: resolved, number: 0}
	if rows.Next() {
		it.number = 1
		header, err := rows.Columns()
		if err != nil {
			it.Close()
			return nil, fmt.Errorf("unable to read header row: %w", err)
		}
		it.headers = prepareHeaders(header)
	}
	return it, nil
}

// RowIterator walks a sheet's data rows in source order, skipping blank rows.
// It holds the workbook open until Close.
type RowIterator struct {
	file    *excelize.File
	rows    *excelize.Rows
	sheet   string
	headers []string
	number  int
	current Row
	err     error
	closed  bool
}

// Sheet returns the resolved sheet name.
func (it *RowIterator) Sheet() string { return it.sheet }

// Headers returns the deduplicated header names.
func (it *RowIterator) Headers() []string { return it.headers }

// Next advances to the next non-blank data row. It returns false at the end
// of the sheet or on error; check Err afterwards.
func (it *RowIterator) Next() bool {
	if it.closed || it.err != nil || len(it.headers) == 0 {
		return false
	}
	for it.rows.Next() {
		it.number++
		values, err := it.rows.Columns()
		if err != nil {
			it.err = fmt.Errorf("unable to read row %d: %w", it.number, err)
			return false
		}
		record := make(map[string]any, len(it.headers))
		for idx, name := range it.headers {
			if idx < len(values) {
				record[name] = sanitizeCell(values[idx])
			} else {
				record[name] = nil
			}
		}
		if rowIsEmpty(record) {
			continue
		}
		it.current = Row{Number: it.number, Record: record}
		return true
	}
	it.err = it.rows.Error()
	return false
}

// Row returns the row positioned by the last successful Next.
func (it *RowIterator) Row() Row { return it.current }

// Err returns the first error hit while iterating.
func (it *RowIterator) Err() error { return it.err }

// Close releases the underlying workbook handle. Safe to call twice.
func (it *RowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	rerr := it.rows.Close()
	ferr := it.file.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}

// prepareHeaders normalizes a header row: blanks become column_N, duplicates
// get a _2, _3 suffix by occurrence.
func prepareHeaders(header []string) []string {
	headers := make([]string, 0, len(header))
	counts := make(map[string]int)
	for idx, raw := range header {
		base := strings.TrimSpace(raw)
		if base == "" {
			base = fmt.Sprintf("column_%d", idx+1)
		}
		name := base
		counts[base]++
		if counts[base] > 1 {
			name = fmt.Sprintf("%s_%d", base, counts[base])
		}
		headers = append(headers, name)
	}
	return headers
}

// sanitizeCell maps blank cells to nil so missing-value checks treat them
// uniformly.
func sanitizeCell(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func rowIsEmpty(record map[string]any) bool {
	for _, value := range record {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}
