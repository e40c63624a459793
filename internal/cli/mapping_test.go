package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMappingSuggestCommand(t *testing.T) {
	app := setupTestApp(t)

	converted, err := app.Importer.ConvertJSON([]byte(flowSampleJSON), "data.items", "", "export.json")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	mappingSuggestUpload = converted.UploadID
	defer func() { mappingSuggestUpload = "" }()

	cmd, buf := newTestCmd()
	if err := runMappingSuggest(app, cmd, nil); err != nil {
		t.Fatalf("runMappingSuggest failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"task_id", "task_name", "title", "media.url"} {
		if !strings.Contains(output, want) {
			t.Errorf("suggest output missing %q:\n%s", want, output)
		}
	}
}

func TestMappingSuggestUnknownUpload(t *testing.T) {
	app := setupTestApp(t)

	mappingSuggestUpload = "missing"
	defer func() { mappingSuggestUpload = "" }()

	cmd, _ := newTestCmd()
	err := runMappingSuggest(app, cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "upload not found") {
		t.Errorf("expected upload not found, got: %v", err)
	}
}

func TestMappingDiffCommand(t *testing.T) {
	dir := t.TempDir()

	base := `{
  "sheet": "Raw",
  "core": {
    "task_id": {"mode": "generate", "strategy": "uuid_v4"},
    "task_name": {"name": "title"},
    "file_name": {"name": "media.url", "transforms": ["basename"]}
  }
}`
	// Same mapping expressed as YAML
	sameYAML := `sheet: Raw
core:
  task_id:
    mode: generate
    strategy: uuid_v4
  task_name:
    name: title
  file_name:
    name: media.url
    transforms: [basename]
`
	changed := strings.Replace(base, "uuid_v4", "seq_per_batch", 1)

	basePath := filepath.Join(dir, "a.json")
	samePath := filepath.Join(dir, "b.yaml")
	changedPath := filepath.Join(dir, "c.json")
	for path, content := range map[string]string{basePath: base, samePath: sameYAML, changedPath: changed} {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}

	// Equivalent docs diff to nothing, format differences included
	cmd, buf := newTestCmd()
	if err := runMappingDiff(cmd, []string{basePath, samePath}); err != nil {
		t.Fatalf("runMappingDiff failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "" {
		t.Errorf("expected empty diff, got:\n%s", buf.String())
	}

	// A real change shows up as a unified diff
	cmd, buf = newTestCmd()
	if err := runMappingDiff(cmd, []string{basePath, changedPath}); err != nil {
		t.Fatalf("runMappingDiff failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "-") || !strings.Contains(output, "seq_per_batch") {
		t.Errorf("expected diff mentioning seq_per_batch, got:\n%s", output)
	}
}
