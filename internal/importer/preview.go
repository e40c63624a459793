package importer

import (
	"github.com/annolab/ingest/internal/mapping"
	"github.com/annolab/ingest/internal/source"
)

// PreviewRequest asks for a non-mutating dry run of the mapping. Rows take
// precedence over UploadID when both are present.
type PreviewRequest struct {
	ProjectID int64
	Mapping   *mapping.Config
	UploadID  string
	Rows      []map[string]any
	Limit     int
}

// PreviewResult is the dry-run output: mapped candidates, per-row issues,
// and the effective mapping (suggested when none was supplied).
type PreviewResult struct {
	Rows      []*mapping.Candidate
	Issues    []Issue
	Columns   []string
	TotalRows int
	Sheet     string
	Mapping   *mapping.Config
	Suggested bool
}

// Preview maps a bounded read of the source without touching the database or
// the upload artifacts. Previewing repeatedly is allowed and side-effect free.
func (s *Service) Preview(req *PreviewRequest) (*PreviewResult, error) {
	if err := s.ensureProject(req.ProjectID); err != nil {
		return nil, err
	}
	if req.UploadID == "" && len(req.Rows) == 0 {
		return nil, &ImportError{Msg: "provide either an upload ID or rows for preview"}
	}

	limit := req.Limit
	if limit < 1 || limit > s.previewLimit {
		limit = s.previewLimit
	}

	cfg := req.Mapping
	sheet := mapping.DefaultSheet
	if cfg != nil && cfg.Sheet != "" {
		sheet = cfg.Sheet
	}

	var columns []string
	var rows []source.Row
	var totalRows int

	if len(req.Rows) > 0 {
		columns, rows, totalRows = source.NewMemorySource(req.Rows).Prepare(limit)
		sheet = ""
	} else {
		if !s.uploads.Exists(req.UploadID) {
			return nil, &ImportError{Msg: "upload not found"}
		}
		requested := ""
		if cfg != nil {
			requested = cfg.Sheet
		}
		preview, err := source.NewExcelSource(s.uploads.ExcelPath(req.UploadID)).Preview(requested, limit)
		if err != nil {
			return nil, importErrorf(err, "failed to read upload")
		}
		sheet = preview.Sheet
		columns = preview.Columns
		rows = preview.Rows
		totalRows = preview.TotalRows
	}

	suggested := false
	if cfg == nil {
		cfg = mapping.Suggest(columns)
		suggested = true
	}
	if sheet != "" && cfg.Sheet != sheet {
		reconciled := *cfg
		reconciled.Sheet = sheet
		cfg = &reconciled
	}

	rt := mapping.NewRuntime()
	result := &PreviewResult{
		Columns:   columns,
		TotalRows: totalRows,
		Sheet:     sheet,
		Mapping:   cfg,
		Suggested: suggested,
	}
	for _, row := range rows {
		candidate, rowIssues := mapping.ProcessRow(row.Record, row.Number, cfg, rt)
		result.Rows = append(result.Rows, candidate)
		for _, message := range rowIssues {
			result.Issues = append(result.Issues, Issue{Row: row.Number, Message: message})
		}
	}
	return result, nil
}
