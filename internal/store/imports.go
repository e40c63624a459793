package store

import (
	"database/sql"
	"fmt"
)

// ImportFile records one confirmed import batch.
type ImportFile struct {
	ID           int64
	ProjectID    int64
	FileName     string
	SheetName    string
	InsertedRows int
	SkippedRows  int
	CreatedAt    string
}

// TaskRow is one task to insert during an import. Payload is serialized JSON.
type TaskRow struct {
	TaskID    string
	TaskName  string
	FileName  string
	Payload   string
	RowNumber int
}

// ImportStore writes import batches.
type ImportStore struct {
	store *Store
}

// Record inserts the import-file row and all tasks in a single transaction.
// A uniqueness violation on any task returns *ConflictError and rolls the
// whole batch back, leaving no partial state.
func (is *ImportStore) Record(projectID int64, fileName, sheetName string, skipped int, tasks []TaskRow) (*ImportFile, error) {
	var file *ImportFile
	err := is.store.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO import_files (project_id, file_name, sheet_name, inserted_rows, skipped_rows)
			VALUES (?, ?, ?, ?, ?)`,
			projectID, fileName, sheetName, len(tasks), skipped)
		if err != nil {
			return fmt.Errorf("failed to insert import file: %w", err)
		}
		importID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read import file id: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO tasks (project_id, import_file_id, task_id, task_name, file_name, payload, row_number)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare task insert: %w", err)
		}
		defer stmt.Close()

		for _, task := range tasks {
			_, err := stmt.Exec(projectID, importID, task.TaskID, task.TaskName,
				task.FileName, task.Payload, task.RowNumber)
			if err != nil {
				return asConflict(fmt.Errorf("failed to insert task %s: %w", task.TaskID, err))
			}
		}

		file = &ImportFile{
			ID:           importID,
			ProjectID:    projectID,
			FileName:     fileName,
			SheetName:    sheetName,
			InsertedRows: len(tasks),
			SkippedRows:  skipped,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// List returns the import batches for a project, newest last.
func (is *ImportStore) List(projectID int64) ([]*ImportFile, error) {
	rows, err := is.store.db.Query(`
		SELECT id, project_id, file_name, sheet_name, inserted_rows, skipped_rows, created_at
		FROM import_files WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list import files: %w", err)
	}
	defer rows.Close()

	var files []*ImportFile
	for rows.Next() {
		var f ImportFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FileName, &f.SheetName,
			&f.InsertedRows, &f.SkippedRows, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan import file: %w", err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import files: %w", err)
	}
	return files, nil
}
