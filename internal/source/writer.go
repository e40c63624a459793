package source

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/annolab/ingest/internal/flatten"
)

const maxSheetNameLength = 31

const invalidSheetNameChars = `[]:*?/\`

// SanitizeSheetName normalizes a sheet name to Excel's constraints: invalid
// characters replaced with underscores, at most 31 characters, never empty.
func SanitizeSheetName(name, fallback string) string {
	base := strings.TrimSpace(fallback)
	if base == "" {
		base = "Sheet1"
	}
	candidate := strings.TrimSpace(name)
	if candidate == "" {
		candidate = base
	}
	candidate = strings.TrimSpace(truncate(replaceInvalid(candidate)))
	if candidate == "" {
		candidate = strings.TrimSpace(truncate(replaceInvalid(base)))
	}
	if candidate == "" {
		candidate = "Sheet1"
	}
	return candidate
}

// DetermineSheetName picks a sheet name, preferring user input and falling
// back to the source filename stem.
func DetermineSheetName(preferred, originalFilename string) string {
	fallback := ""
	if originalFilename != "" {
		stem := filepath.Base(originalFilename)
		fallback = strings.TrimSuffix(stem, filepath.Ext(stem))
	}
	if fallback == "" {
		fallback = "Sheet1"
	}
	return SanitizeSheetName(preferred, fallback)
}

func replaceInvalid(name string) string {
	var b strings.Builder
	for _, ch := range name {
		if strings.ContainsRune(invalidSheetNameChars, ch) {
			b.WriteByte('_')
		} else {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func truncate(name string) string {
	runes := []rune(name)
	if len(runes) > maxSheetNameLength {
		runes = runes[:maxSheetNameLength]
	}
	return string(runes)
}

// WriteWorkbook writes flattened records to an .xlsx file: a header row of
// columns, then one row per record with missing values left blank.
func WriteWorkbook(path, sheetName string, columns []string, records []*flatten.Record) error {
	sheet := SanitizeSheetName(sheetName, "")

	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	writer, err := file.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := writer.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := make([]any, len(columns))
		for j, column := range columns {
			value, ok := record.Get(column)
			if !ok {
				row[j] = ""
				continue
			}
			row[j] = cellValue(value)
		}
		if err := writer.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush workbook: %w", err)
	}
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// cellValue converts a flattened value to a cell-friendly type. json.Number
// keeps its numeric form instead of degrading to text.
func cellValue(value any) any {
	switch v := value.(type) {
	case nil:
		return ""
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}
