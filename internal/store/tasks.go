package store

import (
	"fmt"
	"strings"
)

// existingIDChunkSize bounds the IN (...) lists used for duplicate lookups.
const existingIDChunkSize = 500

// Task is an imported annotation task.
type Task struct {
	ID           int64
	ProjectID    int64
	ImportFileID int64
	TaskID       string
	TaskName     string
	FileName     string
	Payload      string
	Status       string
	RowNumber    int
	CreatedAt    string
}

// TaskStore manages imported task records.
type TaskStore struct {
	store *Store
}

// ExistingTaskIDs returns which of the given task IDs already exist in the
// project. Lookups run in chunks so large batches stay within SQLite's bound
// parameter limit.
func (ts *TaskStore) ExistingTaskIDs(projectID int64, taskIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)

	for start := 0; start < len(taskIDs); start += existingIDChunkSize {
		end := start + existingIDChunkSize
		if end > len(taskIDs) {
			end = len(taskIDs)
		}
		chunk := taskIDs[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := fmt.Sprintf(
			"SELECT task_id FROM tasks WHERE project_id = ? AND task_id IN (%s)", placeholders)

		args := make([]any, 0, len(chunk)+1)
		args = append(args, projectID)
		for _, taskID := range chunk {
			args = append(args, taskID)
		}

		rows, err := ts.store.db.Query(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query existing task IDs: %w", err)
		}
		for rows.Next() {
			var taskID string
			if err := rows.Scan(&taskID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan task ID: %w", err)
			}
			existing[taskID] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating task IDs: %w", err)
		}
		rows.Close()
	}

	return existing, nil
}

// CountByProject returns the number of tasks in a project.
func (ts *TaskStore) CountByProject(projectID int64) (int, error) {
	var count int
	err := ts.store.db.QueryRow(
		"SELECT COUNT(*) FROM tasks WHERE project_id = ?", projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// ListByImport returns the tasks created by one import batch, in row order.
func (ts *TaskStore) ListByImport(importFileID int64) ([]*Task, error) {
	rows, err := ts.store.db.Query(`
		SELECT id, project_id, import_file_id, task_id, task_name, file_name,
		       payload, status, row_number, created_at
		FROM tasks WHERE import_file_id = ? ORDER BY row_number, id`, importFileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.ImportFileID, &t.TaskID, &t.TaskName,
			&t.FileName, &t.Payload, &t.Status, &t.RowNumber, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
