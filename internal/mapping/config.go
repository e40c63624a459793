// Package mapping defines the mapping-config document and the engine that
// turns source rows into task candidates.
package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field modes of the mapping document.
const (
	ModeGenerate = "GENERATE"
	ModeColumn   = "COLUMN"
	ModeConstant = "CONSTANT"
)

// Generation strategies for GENERATE-mode task IDs.
const (
	StrategyUUID        = "uuid_v4"
	StrategySeqPerBatch = "seq_per_batch"
	StrategyExpr        = "expr"
)

// DefaultSheet is assumed when a document omits the sheet name.
const DefaultSheet = "Raw"

// Config is a mapping document: which sheet to read, how to produce the three
// core task fields, and which columns or constants feed the payload.
type Config struct {
	Sheet           string             `json:"sheet" yaml:"sheet"`
	Core            Core               `json:"core" yaml:"core"`
	PayloadSelected []PayloadSelection `json:"payload_selected" yaml:"payload_selected"`
}

// Core maps the three required task fields. task_id may be generated or read
// from a column; task_name and file_name always come from columns.
type Core struct {
	TaskID   CoreField   `json:"task_id" yaml:"task_id"`
	TaskName ColumnField `json:"task_name" yaml:"task_name"`
	FileName ColumnField `json:"file_name" yaml:"file_name"`
}

// CoreField is the tagged GENERATE-or-COLUMN variant used for task_id.
type CoreField struct {
	Mode string
	// GENERATE
	Strategy   string
	Expression string
	// COLUMN
	Name       string
	Transforms []string
}

// ColumnField reads a named column, optionally through transforms.
type ColumnField struct {
	Mode       string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Name       string   `json:"name" yaml:"name"`
	Transforms []string `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

// PayloadSelection is the tagged COLUMN-or-CONSTANT variant for one payload
// key.
type PayloadSelection struct {
	Mode string
	// COLUMN
	Column     string
	Transforms []string
	// both
	Key string
	// CONSTANT
	Value any
}

type generateShadow struct {
	Mode       string `json:"mode" yaml:"mode"`
	Strategy   string `json:"strategy" yaml:"strategy"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

type columnShadow struct {
	Mode       string   `json:"mode" yaml:"mode"`
	Name       string   `json:"name" yaml:"name"`
	Transforms []string `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

type payloadColumnShadow struct {
	Mode       string   `json:"mode" yaml:"mode"`
	Column     string   `json:"column" yaml:"column"`
	Key        string   `json:"key" yaml:"key"`
	Transforms []string `json:"transforms,omitempty" yaml:"transforms,omitempty"`
}

type payloadConstantShadow struct {
	Mode  string `json:"mode" yaml:"mode"`
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func peekMode(data []byte) (string, error) {
	var probe struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.Mode, nil
}

// UnmarshalJSON decodes the GENERATE/COLUMN variant strictly: fields of the
// other variant, or unknown fields, are rejected.
func (f *CoreField) UnmarshalJSON(data []byte) error {
	mode, err := peekMode(data)
	if err != nil {
		return err
	}
	switch mode {
	case ModeGenerate:
		var shadow generateShadow
		if err := strictDecode(data, &shadow); err != nil {
			return err
		}
		switch shadow.Strategy {
		case StrategyUUID, StrategySeqPerBatch, StrategyExpr:
		default:
			return fmt.Errorf("unknown generation strategy '%s'", shadow.Strategy)
		}
		*f = CoreField{Mode: ModeGenerate, Strategy: shadow.Strategy, Expression: shadow.Expression}
		return nil
	case ModeColumn:
		var shadow columnShadow
		if err := strictDecode(data, &shadow); err != nil {
			return err
		}
		*f = CoreField{Mode: ModeColumn, Name: shadow.Name, Transforms: shadow.Transforms}
		return nil
	default:
		return fmt.Errorf("core field mode must be GENERATE or COLUMN, got '%s'", mode)
	}
}

// MarshalJSON writes only the fields of the active variant.
func (f CoreField) MarshalJSON() ([]byte, error) {
	switch f.Mode {
	case ModeGenerate:
		return json.Marshal(generateShadow{Mode: ModeGenerate, Strategy: f.Strategy, Expression: f.Expression})
	case ModeColumn:
		return json.Marshal(columnShadow{Mode: ModeColumn, Name: f.Name, Transforms: f.Transforms})
	default:
		return nil, fmt.Errorf("core field mode must be GENERATE or COLUMN, got '%s'", f.Mode)
	}
}

func (f CoreField) MarshalYAML() (any, error) {
	switch f.Mode {
	case ModeGenerate:
		return generateShadow{Mode: ModeGenerate, Strategy: f.Strategy, Expression: f.Expression}, nil
	case ModeColumn:
		return columnShadow{Mode: ModeColumn, Name: f.Name, Transforms: f.Transforms}, nil
	default:
		return nil, fmt.Errorf("core field mode must be GENERATE or COLUMN, got '%s'", f.Mode)
	}
}

// UnmarshalJSON decodes the COLUMN/CONSTANT variant strictly.
func (s *PayloadSelection) UnmarshalJSON(data []byte) error {
	mode, err := peekMode(data)
	if err != nil {
		return err
	}
	switch mode {
	case ModeColumn:
		var shadow payloadColumnShadow
		if err := strictDecode(data, &shadow); err != nil {
			return err
		}
		*s = PayloadSelection{Mode: ModeColumn, Column: shadow.Column, Key: shadow.Key, Transforms: shadow.Transforms}
		return nil
	case ModeConstant:
		var shadow payloadConstantShadow
		if err := strictDecode(data, &shadow); err != nil {
			return err
		}
		*s = PayloadSelection{Mode: ModeConstant, Key: shadow.Key, Value: shadow.Value}
		return nil
	default:
		return fmt.Errorf("payload selection mode must be COLUMN or CONSTANT, got '%s'", mode)
	}
}

func (s PayloadSelection) MarshalJSON() ([]byte, error) {
	switch s.Mode {
	case ModeColumn:
		return json.Marshal(payloadColumnShadow{Mode: ModeColumn, Column: s.Column, Key: s.Key, Transforms: s.Transforms})
	case ModeConstant:
		return json.Marshal(payloadConstantShadow{Mode: ModeConstant, Key: s.Key, Value: s.Value})
	default:
		return nil, fmt.Errorf("payload selection mode must be COLUMN or CONSTANT, got '%s'", s.Mode)
	}
}

func (s PayloadSelection) MarshalYAML() (any, error) {
	switch s.Mode {
	case ModeColumn:
		return payloadColumnShadow{Mode: ModeColumn, Column: s.Column, Key: s.Key, Transforms: s.Transforms}, nil
	case ModeConstant:
		return payloadConstantShadow{Mode: ModeConstant, Key: s.Key, Value: s.Value}, nil
	default:
		return nil, fmt.Errorf("payload selection mode must be COLUMN or CONSTANT, got '%s'", s.Mode)
	}
}

var _ yaml.Marshaler = CoreField{}

// Validate checks the document is usable by the engine.
func (c *Config) Validate() error {
	switch c.Core.TaskID.Mode {
	case ModeGenerate:
		if c.Core.TaskID.Strategy == StrategyExpr && c.Core.TaskID.Expression == "" {
			return fmt.Errorf("task_id strategy 'expr' requires an expression")
		}
	case ModeColumn:
		if c.Core.TaskID.Name == "" {
			return fmt.Errorf("task_id column name is required")
		}
	default:
		return fmt.Errorf("task_id mode must be GENERATE or COLUMN, got '%s'", c.Core.TaskID.Mode)
	}
	if c.Core.TaskName.Name == "" {
		return fmt.Errorf("task_name column name is required")
	}
	if c.Core.FileName.Name == "" {
		return fmt.Errorf("file_name column name is required")
	}
	for i, selection := range c.PayloadSelected {
		switch selection.Mode {
		case ModeColumn:
			if selection.Column == "" || selection.Key == "" {
				return fmt.Errorf("payload selection %d requires column and key", i)
			}
		case ModeConstant:
			if selection.Key == "" {
				return fmt.Errorf("payload selection %d requires a key", i)
			}
		default:
			return fmt.Errorf("payload selection %d mode must be COLUMN or CONSTANT, got '%s'", i, selection.Mode)
		}
	}
	return nil
}
