package importer_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/annolab/ingest/internal/flatten"
	"github.com/annolab/ingest/internal/importer"
	"github.com/annolab/ingest/internal/mapping"
	"github.com/annolab/ingest/internal/store"
	"github.com/annolab/ingest/internal/testutil"
	"github.com/annolab/ingest/internal/uploads"
)

type fixture struct {
	service   *importer.Service
	store     *store.Store
	uploads   *uploads.Manager
	importDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, _ := testutil.TempDB(t)
	st := store.New(database)

	um, err := uploads.NewManager(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("failed to create upload manager: %v", err)
	}
	importDir := filepath.Join(t.TempDir(), "import_files")

	return &fixture{
		service:   importer.NewService(st, um, importDir, 200),
		store:     st,
		uploads:   um,
		importDir: importDir,
	}
}

func (f *fixture) project(t *testing.T) *store.Project {
	t.Helper()
	project, err := f.store.Projects.Create("demo", "Demo")
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	return project
}

const sampleDoc = `{
  "meta": {"generated": true},
  "data": {"items": [
    {"id": 1, "title": "  First  ", "media": {"url": "https://cdn/x/first.png"}},
    {"id": 2, "title": "Second", "media": {"url": "https://cdn/x/second.png"}},
    {"id": 3, "title": "Third", "media": {"url": "https://cdn/x/third.png"}}
  ]}
}`

func seqMapping(sheet string) *mapping.Config {
	return &mapping.Config{
		Sheet: sheet,
		Core: mapping.Core{
			TaskID:   mapping.CoreField{Mode: mapping.ModeGenerate, Strategy: mapping.StrategySeqPerBatch},
			TaskName: mapping.ColumnField{Name: "title", Transforms: []string{"trim"}},
			FileName: mapping.ColumnField{Name: "media.url", Transforms: []string{"basename"}},
		},
	}
}

func TestConvertJSON(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, "batch", result.Sheet)
	testutil.AssertEqual(t, 3, result.TotalRows)
	if want := []string{"id", "title", "media.url"}; len(result.Columns) != 3 ||
		result.Columns[0] != want[0] || result.Columns[1] != want[1] || result.Columns[2] != want[2] {
		t.Errorf("Columns = %v, want %v", result.Columns, want)
	}
	testutil.AssertEqual(t, 3, len(result.PreviewRows))

	if !f.uploads.Exists(result.UploadID) {
		t.Error("workbook artifact missing after convert")
	}
	if _, err := os.Stat(f.uploads.JSONPath(result.UploadID)); err != nil {
		t.Errorf("json artifact missing: %v", err)
	}
	meta, err := f.uploads.ReadMetadata(result.UploadID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "batch.json", meta.Source)
	testutil.AssertEqual(t, 3, meta.Rows)
}

func TestConvertJSONInvalidPayload(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ConvertJSON([]byte("{not json"), "", "", "bad.json")
	testutil.AssertError(t, err)
	var importErr *importer.ImportError
	if !errors.As(err, &importErr) {
		t.Fatalf("expected *ImportError, got %T", err)
	}
}

func TestConvertJSONBadRecordsPath(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ConvertJSON([]byte(sampleDoc), "data.missing", "", "batch.json")
	testutil.AssertError(t, err)
	var pathErr *flatten.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *flatten.PathError in chain, got %v", err)
	}
}

func TestPreviewSuggestsMapping(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	converted, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	preview, err := f.service.Preview(&importer.PreviewRequest{
		ProjectID: project.ID,
		UploadID:  converted.UploadID,
	})
	testutil.AssertNoError(t, err)

	if !preview.Suggested {
		t.Error("expected a suggested mapping")
	}
	testutil.AssertEqual(t, "title", preview.Mapping.Core.TaskName.Name)
	testutil.AssertEqual(t, "media.url", preview.Mapping.Core.FileName.Name)
	testutil.AssertEqual(t, converted.Sheet, preview.Mapping.Sheet)
	testutil.AssertEqual(t, 3, preview.TotalRows)
	testutil.AssertEqual(t, 3, len(preview.Rows))
	testutil.AssertEqual(t, 0, len(preview.Issues))
	testutil.AssertEqual(t, "First", preview.Rows[0].TaskName)
	testutil.AssertEqual(t, "first.png", preview.Rows[0].FileName)
	testutil.AssertEqual(t, 2, preview.Rows[0].Row)
}

func TestPreviewIsRepeatable(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	converted, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	req := &importer.PreviewRequest{
		ProjectID: project.ID,
		UploadID:  converted.UploadID,
		Mapping:   seqMapping(converted.Sheet),
	}
	first, err := f.service.Preview(req)
	testutil.AssertNoError(t, err)
	second, err := f.service.Preview(req)
	testutil.AssertNoError(t, err)

	// Fresh runtime per pass: sequences restart.
	testutil.AssertEqual(t, "1", first.Rows[0].TaskID)
	testutil.AssertEqual(t, "1", second.Rows[0].TaskID)
	testutil.AssertEqual(t, "3", second.Rows[2].TaskID)
}

func TestPreviewRowsTakePrecedence(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	converted, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	preview, err := f.service.Preview(&importer.PreviewRequest{
		ProjectID: project.ID,
		UploadID:  converted.UploadID,
		Rows: []map[string]any{
			{"title": "Inline", "media.url": "https://cdn/inline.png"},
		},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, preview.TotalRows)
	testutil.AssertEqual(t, "Inline", preview.Rows[0].TaskName)
}

func TestPreviewUnknownProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Preview(&importer.PreviewRequest{ProjectID: 42, UploadID: "whatever"})
	testutil.AssertError(t, err)
	testutil.AssertStringContains(t, err.Error(), "not found")
}

func TestPreviewRequiresSource(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	_, err := f.service.Preview(&importer.PreviewRequest{ProjectID: project.ID})
	testutil.AssertError(t, err)
}

func TestConfirmFullFlow(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	converted, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	result, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		UploadID:  converted.UploadID,
		Mapping:   seqMapping(converted.Sheet),
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 3, result.Inserted)
	testutil.AssertEqual(t, 0, result.Skipped)
	testutil.AssertEqual(t, 0, len(result.Issues))

	count, err := f.store.Tasks.CountByProject(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, count)

	tasks, err := f.store.Tasks.ListByImport(result.ImportFileID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "1", tasks[0].TaskID)
	testutil.AssertEqual(t, "First", tasks[0].TaskName)
	testutil.AssertEqual(t, "first.png", tasks[0].FileName)
	testutil.AssertEqual(t, 2, tasks[0].RowNumber)

	// Artifacts are gone, original JSON retained in import storage.
	if f.uploads.Exists(converted.UploadID) {
		t.Error("workbook artifact should be deleted after confirm")
	}
	if _, err := os.Stat(f.uploads.JSONPath(converted.UploadID)); !os.IsNotExist(err) {
		t.Error("json artifact should be moved after confirm")
	}
	entries, err := os.ReadDir(f.importDir)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(entries))
	if !strings.HasSuffix(entries[0].Name(), "_batch.json") {
		t.Errorf("retained file = %q, want *_batch.json", entries[0].Name())
	}

	files, err := f.store.Imports.List(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(files))
	testutil.AssertEqual(t, entries[0].Name(), files[0].FileName)
}

func TestConfirmSkipsExistingTaskIDs(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	idMapping := &mapping.Config{
		Core: mapping.Core{
			TaskID:   mapping.CoreField{Mode: mapping.ModeColumn, Name: "id"},
			TaskName: mapping.ColumnField{Name: "title"},
			FileName: mapping.ColumnField{Name: "file"},
		},
	}

	first, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		Mapping:   idMapping,
		Rows: []map[string]any{
			{"id": "T-1", "title": "a", "file": "a.dat"},
			{"id": "T-2", "title": "b", "file": "b.dat"},
		},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, first.Inserted)

	second, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		Mapping:   idMapping,
		Rows: []map[string]any{
			{"id": "T-2", "title": "again", "file": "b.dat"},
			{"id": "T-3", "title": "c", "file": "c.dat"},
		},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, second.Inserted)
	testutil.AssertEqual(t, 1, second.Skipped)
	testutil.AssertEqual(t, 1, len(second.Issues))
	testutil.AssertStringContains(t, second.Issues[0].Message, "already exists")

	count, err := f.store.Tasks.CountByProject(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, count)
}

func TestConfirmSkipsInBatchDuplicates(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	idMapping := &mapping.Config{
		Core: mapping.Core{
			TaskID:   mapping.CoreField{Mode: mapping.ModeColumn, Name: "id"},
			TaskName: mapping.ColumnField{Name: "title"},
			FileName: mapping.ColumnField{Name: "file"},
		},
	}

	result, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		Mapping:   idMapping,
		Rows: []map[string]any{
			{"id": "T-1", "title": "a", "file": "a.dat"},
			{"id": "T-1", "title": "dup", "file": "b.dat"},
		},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, result.Inserted)
	testutil.AssertEqual(t, 1, result.Skipped)
	testutil.AssertEqual(t, 1, len(result.Issues))
	testutil.AssertStringContains(t, result.Issues[0].Message, "Duplicate task_id 'T-1'")
	testutil.AssertStringContains(t, result.Issues[0].Message, "row 2")
}

func TestConfirmMissingUpload(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	result, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		UploadID:  "does-not-exist",
		Mapping:   seqMapping("Raw"),
	})
	testutil.AssertError(t, err)
	testutil.AssertStringContains(t, err.Error(), "not found")
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}

	count, err := f.store.Tasks.CountByProject(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 0, count)
}

func TestConfirmRequiresMapping(t *testing.T) {
	f := newFixture(t)
	project := f.project(t)

	_, err := f.service.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		Rows:      []map[string]any{{"id": 1}},
	})
	testutil.AssertError(t, err)
	testutil.AssertStringContains(t, err.Error(), "mapping config")
}

func TestAbortRemovesArtifacts(t *testing.T) {
	f := newFixture(t)

	converted, err := f.service.ConvertJSON([]byte(sampleDoc), "data.items", "", "batch.json")
	testutil.AssertNoError(t, err)

	f.service.Abort(converted.UploadID)
	if f.uploads.Exists(converted.UploadID) {
		t.Error("artifacts should be gone after abort")
	}

	// Aborting again is a no-op.
	f.service.Abort(converted.UploadID)
}
