package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "sheet": "Raw",
  "core": {
    "task_id": {"mode": "GENERATE", "strategy": "seq_per_batch"},
    "task_name": {"mode": "COLUMN", "name": "title", "transforms": ["trim"]},
    "file_name": {"mode": "COLUMN", "name": "media.url", "transforms": ["basename"]}
  },
  "payload_selected": [
    {"mode": "COLUMN", "column": "notes", "key": "notes"},
    {"mode": "CONSTANT", "key": "source", "value": "import"}
  ]
}`

const sampleYAML = `sheet: Raw
core:
  task_id:
    mode: GENERATE
    strategy: seq_per_batch
  task_name:
    mode: COLUMN
    name: title
    transforms: [trim]
  file_name:
    mode: COLUMN
    name: media.url
    transforms: [basename]
payload_selected:
  - mode: COLUMN
    column: notes
    key: notes
  - mode: CONSTANT
    key: source
    value: import
`

func TestDecodeJSONDocument(t *testing.T) {
	cfg, err := Decode([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "Raw", cfg.Sheet)
	assert.Equal(t, ModeGenerate, cfg.Core.TaskID.Mode)
	assert.Equal(t, StrategySeqPerBatch, cfg.Core.TaskID.Strategy)
	assert.Equal(t, "title", cfg.Core.TaskName.Name)
	assert.Equal(t, []string{"basename"}, cfg.Core.FileName.Transforms)
	require.Len(t, cfg.PayloadSelected, 2)
	assert.Equal(t, ModeColumn, cfg.PayloadSelected[0].Mode)
	assert.Equal(t, "notes", cfg.PayloadSelected[0].Column)
	assert.Equal(t, ModeConstant, cfg.PayloadSelected[1].Mode)
	assert.Equal(t, "import", cfg.PayloadSelected[1].Value)
}

func TestDecodeYAMLDocument(t *testing.T) {
	fromYAML, err := Decode([]byte(sampleYAML))
	require.NoError(t, err)
	fromJSON, err := Decode([]byte(sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)
}

func TestDecodeDefaultsSheet(t *testing.T) {
	cfg, err := Decode([]byte(`{
  "core": {
    "task_id": {"mode": "GENERATE", "strategy": "uuid_v4"},
    "task_name": {"mode": "COLUMN", "name": "title"},
    "file_name": {"mode": "COLUMN", "name": "file"}
  }
}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultSheet, cfg.Sheet)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown top-level field",
			doc:  `{"sheet": "Raw", "bogus": 1, "core": {"task_id": {"mode": "GENERATE", "strategy": "uuid_v4"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "unknown variant field",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "uuid_v4", "name": "x"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "bad strategy",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "random"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "bad core mode",
			doc:  `{"core": {"task_id": {"mode": "CONSTANT"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "column task_id without name",
			doc:  `{"core": {"task_id": {"mode": "COLUMN"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "expr strategy without expression",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "expr"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
		{
			name: "payload selection without key",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "uuid_v4"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}, "payload_selected": [{"mode": "CONSTANT", "value": 1}]}`,
		},
		{
			name: "payload selection bad mode",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "uuid_v4"}, "task_name": {"mode": "COLUMN", "name": "a"}, "file_name": {"mode": "COLUMN", "name": "b"}}, "payload_selected": [{"mode": "GENERATE", "key": "k"}]}`,
		},
		{
			name: "missing task_name column",
			doc:  `{"core": {"task_id": {"mode": "GENERATE", "strategy": "uuid_v4"}, "task_name": {"mode": "COLUMN"}, "file_name": {"mode": "COLUMN", "name": "b"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	original, err := Decode([]byte(sampleJSON))
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		encoded, err := EncodeJSON(original)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})

	t.Run("yaml", func(t *testing.T) {
		encoded, err := EncodeYAML(original)
		require.NoError(t, err)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})
}

func TestEncodeJSONOmitsInactiveVariantFields(t *testing.T) {
	cfg, err := Decode([]byte(sampleJSON))
	require.NoError(t, err)

	encoded, err := EncodeJSON(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), `"expression"`)
	assert.NotContains(t, string(encoded), `"column": ""`)
}
