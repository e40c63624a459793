package importer

import (
	"os"

	"github.com/annolab/ingest/internal/flatten"
	"github.com/annolab/ingest/internal/source"
	"github.com/annolab/ingest/internal/uploads"
)

// ConvertResult describes a freshly converted upload.
type ConvertResult struct {
	UploadID    string
	Sheet       string
	Columns     []string
	TotalRows   int
	PreviewRows [][]any
}

// ConvertJSON turns a JSON document into an upload session: the records array
// is resolved and flattened, written as a workbook artifact next to the
// original document and a metadata sidecar, and a bounded preview matrix is
// returned.
func (s *Service) ConvertJSON(data []byte, recordsPath, sheetName, originalName string) (*ConvertResult, error) {
	decoded, err := flatten.Decode(data)
	if err != nil {
		return nil, importErrorf(err, "invalid JSON payload")
	}

	records, err := flatten.Records(decoded, recordsPath)
	if err != nil {
		return nil, importErrorf(err, "failed to resolve records")
	}

	flattened := make([]*flatten.Record, 0, len(records))
	for _, record := range records {
		flattened = append(flattened, flatten.Flatten(record))
	}
	columns := flatten.OrderColumns(flattened)

	uploadID := s.uploads.NewUploadID()
	sheet := source.DetermineSheetName(sheetName, originalName)

	if err := source.WriteWorkbook(s.uploads.ExcelPath(uploadID), sheet, columns, flattened); err != nil {
		s.uploads.Delete(uploadID)
		return nil, importErrorf(err, "failed to write workbook")
	}
	if err := os.WriteFile(s.uploads.JSONPath(uploadID), data, 0644); err != nil {
		s.uploads.Delete(uploadID)
		return nil, importErrorf(err, "failed to store original JSON")
	}
	meta := &uploads.Metadata{
		Type:        "json",
		Source:      originalName,
		Sheet:       sheet,
		RecordsPath: recordsPath,
		Columns:     columns,
		Rows:        len(flattened),
	}
	if err := s.uploads.WriteMetadata(uploadID, meta); err != nil {
		s.uploads.Delete(uploadID)
		return nil, importErrorf(err, "failed to write upload metadata")
	}

	return &ConvertResult{
		UploadID:    uploadID,
		Sheet:       sheet,
		Columns:     columns,
		TotalRows:   len(flattened),
		PreviewRows: previewMatrix(columns, flattened, s.previewLimit),
	}, nil
}

// previewMatrix renders the first rows as a column-aligned value matrix, with
// empty strings for missing cells.
func previewMatrix(columns []string, records []*flatten.Record, limit int) [][]any {
	matrix := make([][]any, 0, limit)
	for _, record := range records {
		if len(matrix) >= limit {
			break
		}
		row := make([]any, len(columns))
		for i, column := range columns {
			value, ok := record.Get(column)
			if !ok || value == nil {
				row[i] = ""
			} else {
				row[i] = value
			}
		}
		matrix = append(matrix, row)
	}
	return matrix
}
