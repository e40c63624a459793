package mapping

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/annolab/ingest/internal/expr"
	"github.com/annolab/ingest/internal/transform"
)

// Runtime carries per-batch mutable state. Each preview or confirm pass gets
// a fresh one so seq_per_batch always counts from 1.
type Runtime struct {
	sequence int
}

// NewRuntime returns a runtime with the sequence at zero.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// NextSeq returns the next per-batch sequence value, starting at 1.
func (r *Runtime) NextSeq() int {
	r.sequence++
	return r.sequence
}

// Candidate is one mapped task: the source row number, the three core fields
// as strings, and the selected payload.
type Candidate struct {
	Row      int            `json:"row"`
	TaskID   string         `json:"task_id"`
	TaskName string         `json:"task_name"`
	FileName string         `json:"file_name"`
	Payload  map[string]any `json:"payload"`
}

// ProcessRow maps one source row to a candidate. Field-level problems become
// issue strings and the field falls back to a generated or default value; the
// row itself always yields a candidate.
func ProcessRow(row map[string]any, rowNumber int, cfg *Config, rt *Runtime) (*Candidate, []string) {
	var issues []string

	taskID := resolveTaskID(row, rowNumber, cfg.Core.TaskID, rt, &issues)
	taskName := resolveColumnValue(row, cfg.Core.TaskName, "Untitled", &issues)
	fileName := resolveColumnValue(row, cfg.Core.FileName, fmt.Sprintf("row_%d.dat", rowNumber-1), &issues)
	payload := buildPayload(row, cfg.PayloadSelected, &issues)

	candidate := &Candidate{
		Row:      rowNumber,
		TaskID:   taskID,
		TaskName: taskName,
		FileName: fileName,
		Payload:  payload,
	}
	return candidate, issues
}

func resolveTaskID(row map[string]any, rowNumber int, field CoreField, rt *Runtime, issues *[]string) string {
	if field.Mode == ModeGenerate {
		switch field.Strategy {
		case StrategyUUID:
			return uuid.NewString()
		case StrategySeqPerBatch:
			return fmt.Sprintf("%d", rt.NextSeq())
		case StrategyExpr:
			// The sequence advances even when the expression fails, so seq
			// stays aligned with the row stream.
			seq := rt.NextSeq()
			ctx := &expr.Context{
				RowIndex: rowNumber - 2,
				ExcelRow: rowNumber,
				Seq:      seq,
				Row:      row,
			}
			result, err := expr.Evaluate(strings.TrimSpace(field.Expression), ctx)
			if err != nil {
				*issues = append(*issues, fmt.Sprintf("task_id expr failed → %v", err))
				return uuid.NewString()
			}
			if transform.IsMissing(result) {
				*issues = append(*issues, "task_id expr empty → generated uuid")
				return uuid.NewString()
			}
			return transform.Stringify(result)
		default:
			*issues = append(*issues, fmt.Sprintf("Unknown generation strategy: %s", field.Strategy))
			return uuid.NewString()
		}
	}

	value, err := transform.Apply(row[field.Name], field.Transforms)
	if err != nil {
		*issues = append(*issues, fmt.Sprintf("task_id transform error → %v", err))
		value = nil
	}
	if transform.IsMissing(value) {
		*issues = append(*issues, "task_id empty → generated uuid")
		return uuid.NewString()
	}
	return transform.Stringify(value)
}

// resolveColumnValue reads a core column through its transforms. A column
// absent from the record takes the default without an issue; a column that is
// present but empty, or whose transform fails, records one.
func resolveColumnValue(row map[string]any, field ColumnField, defaultValue string, issues *[]string) string {
	raw, present := row[field.Name]
	if !present {
		return defaultValue
	}

	value, err := transform.Apply(raw, field.Transforms)
	if err != nil {
		*issues = append(*issues, fmt.Sprintf("%s transform error → %v", field.Name, err))
		value = nil
	}
	if transform.IsMissing(value) {
		*issues = append(*issues, fmt.Sprintf("%s empty → using default", field.Name))
		return defaultValue
	}
	return transform.Stringify(value)
}

// buildPayload applies the payload selections. Column values that are missing
// after transforms are omitted silently; transform failures record an issue
// and omit the key; constants are always set.
func buildPayload(row map[string]any, selections []PayloadSelection, issues *[]string) map[string]any {
	payload := make(map[string]any)
	for _, selection := range selections {
		if selection.Mode == ModeConstant {
			payload[selection.Key] = selection.Value
			continue
		}
		value, err := transform.Apply(row[selection.Column], selection.Transforms)
		if err != nil {
			*issues = append(*issues, fmt.Sprintf("%s transform error → %v", selection.Column, err))
			continue
		}
		if transform.IsMissing(value) {
			continue
		}
		payload[selection.Key] = value
	}
	return payload
}
