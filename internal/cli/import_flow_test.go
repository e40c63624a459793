package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const flowSampleJSON = `{
  "data": {"items": [
    {"id": 1, "title": "First", "media": {"url": "https://cdn/a/first.png"}},
    {"id": 2, "title": "Second", "media": {"url": "https://cdn/a/second.png"}}
  ]}
}`

func writeFlowSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	if err := os.WriteFile(path, []byte(flowSampleJSON), 0644); err != nil {
		t.Fatalf("failed to write sample: %v", err)
	}
	return path
}

func TestConvertCommand(t *testing.T) {
	app := setupTestApp(t)
	path := writeFlowSample(t)

	cmd, buf := newTestCmd()
	if err := runConvert(app, cmd, []string{path}); err != nil {
		t.Fatalf("runConvert failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "created from export.json") {
		t.Errorf("expected upload summary, got:\n%s", output)
	}
	if !strings.Contains(output, "rows:    2") {
		t.Errorf("expected row count, got:\n%s", output)
	}
	if !strings.Contains(output, "- media.url") {
		t.Errorf("expected column listing, got:\n%s", output)
	}
}

func TestImportFlowCommands(t *testing.T) {
	app := setupTestApp(t)

	// Create the target project
	cmd, buf := newTestCmd()
	if err := runProjectsCreate(app, cmd, []string{"demo"}); err != nil {
		t.Fatalf("runProjectsCreate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Created project demo (P-00001)") {
		t.Errorf("unexpected create output: %s", buf.String())
	}

	// Convert the export directly through the service to get the upload ID
	data, _ := os.ReadFile(writeFlowSample(t))
	converted, err := app.Importer.ConvertJSON(data, "data.items", "", "export.json")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	// Preview with a suggested mapping, saving it for the confirm step
	mappingPath := filepath.Join(t.TempDir(), "map.yaml")
	previewProject = "demo"
	previewUpload = converted.UploadID
	previewSaveMapping = mappingPath
	defer func() {
		previewProject = ""
		previewUpload = ""
		previewSaveMapping = ""
	}()

	cmd, buf = newTestCmd()
	if err := runPreview(app, cmd, nil); err != nil {
		t.Fatalf("runPreview failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "suggested mapping") {
		t.Errorf("expected suggestion notice, got:\n%s", output)
	}
	if !strings.Contains(output, "first.png") {
		t.Errorf("expected mapped file name, got:\n%s", output)
	}
	if _, err := os.Stat(mappingPath); err != nil {
		t.Fatalf("saved mapping missing: %v", err)
	}

	// Confirm using the saved mapping
	confirmProject = "demo"
	confirmUpload = converted.UploadID
	confirmMapping = mappingPath
	defer func() {
		confirmProject = ""
		confirmUpload = ""
		confirmMapping = ""
	}()

	cmd, buf = newTestCmd()
	if err := runConfirm(app, cmd, nil); err != nil {
		t.Fatalf("runConfirm failed: %v", err)
	}
	output = buf.String()
	if !strings.Contains(output, "Imported 2 task(s) into demo (P-00001), 0 skipped") {
		t.Errorf("unexpected confirm output:\n%s", output)
	}
	if !strings.Contains(output, "import file: IMP-00001") {
		t.Errorf("expected import file ID, got:\n%s", output)
	}

	// Imports listing shows the retained file
	importsProject = "demo"
	defer func() { importsProject = "" }()

	cmd, buf = newTestCmd()
	if err := runImports(app, cmd, nil); err != nil {
		t.Fatalf("runImports failed: %v", err)
	}
	output = buf.String()
	if !strings.Contains(output, "IMP-00001") {
		t.Errorf("expected import row, got:\n%s", output)
	}
	if !strings.Contains(output, "_export.json") {
		t.Errorf("expected stored file name, got:\n%s", output)
	}

	// Project listing reflects the task count
	cmd, buf = newTestCmd()
	if err := runProjectsLs(app, cmd, nil); err != nil {
		t.Fatalf("runProjectsLs failed: %v", err)
	}
	output = buf.String()
	if !strings.Contains(output, "demo") || !strings.Contains(output, "2") {
		t.Errorf("expected project with 2 tasks, got:\n%s", output)
	}
}

func TestConfirmCommandRequiresMapping(t *testing.T) {
	app := setupTestApp(t)

	if _, err := app.Store.Projects.Create("demo", ""); err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	confirmProject = "demo"
	confirmUpload = "whatever"
	defer func() {
		confirmProject = ""
		confirmUpload = ""
	}()

	cmd, _ := newTestCmd()
	err := runConfirm(app, cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--mapping") {
		t.Errorf("expected mapping error, got: %v", err)
	}
}

func TestAbortCommand(t *testing.T) {
	app := setupTestApp(t)

	data := []byte(flowSampleJSON)
	converted, err := app.Importer.ConvertJSON(data, "data.items", "", "export.json")
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	cmd, buf := newTestCmd()
	if err := runAbort(app, cmd, []string{converted.UploadID}); err != nil {
		t.Fatalf("runAbort failed: %v", err)
	}
	if !strings.Contains(buf.String(), "discarded") {
		t.Errorf("unexpected abort output: %s", buf.String())
	}
	if app.Importer.Uploads().Exists(converted.UploadID) {
		t.Error("upload artifacts should be gone after abort")
	}
}

func TestProjectsCreateDuplicate(t *testing.T) {
	app := setupTestApp(t)

	cmd, _ := newTestCmd()
	if err := runProjectsCreate(app, cmd, []string{"demo"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := runProjectsCreate(app, cmd, []string{"demo"})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected duplicate error, got: %v", err)
	}
}
