package importer

import (
	"encoding/json"
	"fmt"

	"github.com/annolab/ingest/internal/mapping"
	"github.com/annolab/ingest/internal/source"
	"github.com/annolab/ingest/internal/store"
)

// ConfirmRequest commits a mapped batch. Rows take precedence over UploadID
// when both are present; Mapping is required.
type ConfirmRequest struct {
	ProjectID int64
	Mapping   *mapping.Config
	UploadID  string
	Rows      []map[string]any
}

// ConfirmResult reports what the confirm pass did.
type ConfirmResult struct {
	Inserted     int
	Skipped      int
	Issues       []Issue
	ImportFileID int64
}

// Confirm streams the whole source through the mapping and writes the batch
// in a single transaction. Duplicate task IDs, in the batch or already in the
// project, are skipped with an issue; a database conflict rolls back the
// entire batch. Upload artifacts are discarded only after a successful
// commit.
func (s *Service) Confirm(req *ConfirmRequest) (*ConfirmResult, error) {
	if err := s.ensureProject(req.ProjectID); err != nil {
		return nil, err
	}
	if req.UploadID == "" && len(req.Rows) == 0 {
		return nil, &ImportError{Msg: "provide either an upload ID or rows for confirmation"}
	}
	if req.Mapping == nil {
		return nil, &ImportError{Msg: "a mapping config is required for confirmation"}
	}
	if err := req.Mapping.Validate(); err != nil {
		return nil, importErrorf(err, "invalid mapping config")
	}

	result := &ConfirmResult{}
	rt := mapping.NewRuntime()
	var pending []*mapping.Candidate
	seen := make(map[string]int)
	sheet := ""

	consume := func(row source.Row) {
		candidate, rowIssues := mapping.ProcessRow(row.Record, row.Number, req.Mapping, rt)
		if firstRow, dup := seen[candidate.TaskID]; dup {
			result.Issues = append(result.Issues, Issue{
				Row:     row.Number,
				Message: fmt.Sprintf("Duplicate task_id '%s' in upload (first used at row %d); skipped.", candidate.TaskID, firstRow),
			})
			result.Skipped++
			return
		}
		seen[candidate.TaskID] = row.Number
		for _, message := range rowIssues {
			result.Issues = append(result.Issues, Issue{Row: row.Number, Message: message})
		}
		pending = append(pending, candidate)
	}

	if len(req.Rows) > 0 {
		_, rows, _ := source.NewMemorySource(req.Rows).Prepare(len(req.Rows))
		for _, row := range rows {
			consume(row)
		}
	} else {
		if !s.uploads.Exists(req.UploadID) {
			return nil, &ImportError{Msg: "upload not found"}
		}
		it, err := source.NewExcelSource(s.uploads.ExcelPath(req.UploadID)).Stream(req.Mapping.Sheet)
		if err != nil {
			return nil, importErrorf(err, "failed to read upload")
		}
		sheet = it.Sheet()
		for it.Next() {
			consume(it.Row())
		}
		streamErr := it.Err()
		it.Close()
		if streamErr != nil {
			return nil, importErrorf(streamErr, "failed to read upload")
		}
	}

	if len(pending) == 0 {
		return result, nil
	}

	taskIDs := make([]string, 0, len(pending))
	for _, candidate := range pending {
		taskIDs = append(taskIDs, candidate.TaskID)
	}
	existing, err := s.store.Tasks.ExistingTaskIDs(req.ProjectID, taskIDs)
	if err != nil {
		return nil, importErrorf(err, "failed to check existing task IDs")
	}

	taskRows := make([]store.TaskRow, 0, len(pending))
	for _, candidate := range pending {
		if existing[candidate.TaskID] {
			result.Issues = append(result.Issues, Issue{
				Row:     seen[candidate.TaskID],
				Message: fmt.Sprintf("task_id '%s' already exists for this project; skipped.", candidate.TaskID),
			})
			result.Skipped++
			continue
		}
		payload, err := json.Marshal(candidate.Payload)
		if err != nil {
			result.Issues = append(result.Issues, Issue{
				Row:     candidate.Row,
				Message: fmt.Sprintf("Payload for task_id '%s' is not JSON serializable; skipped.", candidate.TaskID),
			})
			result.Skipped++
			continue
		}
		taskRows = append(taskRows, store.TaskRow{
			TaskID:    candidate.TaskID,
			TaskName:  candidate.TaskName,
			FileName:  candidate.FileName,
			Payload:   string(payload),
			RowNumber: candidate.Row,
		})
	}

	if len(taskRows) == 0 {
		return result, nil
	}

	storedName := "inline-rows"
	if req.UploadID != "" {
		storedName, err = s.uploads.StoredName(req.UploadID)
		if err != nil {
			return nil, importErrorf(err, "failed to derive import file name")
		}
	}

	file, err := s.store.Imports.Record(req.ProjectID, storedName, sheet, result.Skipped, taskRows)
	if err != nil {
		return nil, importErrorf(err, "failed to record import")
	}
	result.Inserted = len(taskRows)
	result.ImportFileID = file.ID

	// The batch is committed; artifact cleanup failures no longer undo it.
	if req.UploadID != "" {
		if err := s.uploads.RetainAs(req.UploadID, s.importFilesDir, storedName); err != nil {
			result.Issues = append(result.Issues, Issue{Message: fmt.Sprintf("failed to retain source file: %v", err)})
		}
		s.uploads.Delete(req.UploadID)
	}
	return result, nil
}
