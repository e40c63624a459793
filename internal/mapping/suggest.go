package mapping

import "strings"

var taskNameHints = []string{"task_name", "name", "title"}

var fileNameHints = []string{"file_name", "filename", "file", "media.url", "url"}

// Suggest builds a starter mapping from the source columns: uuid_v4 task IDs,
// a trimmed name-ish column for task_name, a file-ish column for file_name
// with basename applied when it looks like a URL or path.
func Suggest(columns []string) *Config {
	taskNameColumn := findColumn(columns, taskNameHints)
	if taskNameColumn == "" && len(columns) > 0 {
		taskNameColumn = columns[0]
	}
	if taskNameColumn == "" {
		taskNameColumn = "task_name"
	}

	fileNameColumn := findColumn(columns, fileNameHints)
	if fileNameColumn == "" && len(columns) > 0 {
		fileNameColumn = columns[0]
	}
	var fileTransforms []string
	if fileNameColumn != "" {
		lowered := strings.ToLower(fileNameColumn)
		if strings.Contains(lowered, "url") || strings.Contains(lowered, "path") {
			fileTransforms = append(fileTransforms, "basename")
		}
	}
	if fileNameColumn == "" {
		fileNameColumn = "file_name"
	}

	return &Config{
		Sheet: DefaultSheet,
		Core: Core{
			TaskID:   CoreField{Mode: ModeGenerate, Strategy: StrategyUUID},
			TaskName: ColumnField{Mode: ModeColumn, Name: taskNameColumn, Transforms: []string{"trim"}},
			FileName: ColumnField{Mode: ModeColumn, Name: fileNameColumn, Transforms: fileTransforms},
		},
		PayloadSelected: []PayloadSelection{},
	}
}

// findColumn matches hints against columns, exact (case-insensitive) matches
// first in hint order, then substring matches in column order.
func findColumn(columns []string, hints []string) string {
	lowered := make(map[string]string, len(columns))
	for _, column := range columns {
		key := strings.ToLower(column)
		if _, exists := lowered[key]; !exists {
			lowered[key] = column
		}
	}
	for _, hint := range hints {
		if column, ok := lowered[hint]; ok {
			return column
		}
	}
	for _, column := range columns {
		for _, hint := range hints {
			if strings.Contains(strings.ToLower(column), hint) {
				return column
			}
		}
	}
	return ""
}
