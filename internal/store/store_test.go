package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/annolab/ingest/internal/store"
	"github.com/annolab/ingest/internal/testutil"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	database, _ := testutil.TempDB(t)
	return store.New(database)
}

func TestProjectCreateAndGet(t *testing.T) {
	s := newStore(t)

	project, err := s.Projects.Create("vision-batch", "Vision Batch")
	testutil.AssertNoError(t, err)
	if project.ID == 0 {
		t.Fatal("expected non-zero project ID")
	}

	got, err := s.Projects.Get(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "vision-batch", got.Slug)
	testutil.AssertEqual(t, "Vision Batch", got.Title)

	bySlug, err := s.Projects.GetBySlug("vision-batch")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, project.ID, bySlug.ID)

	exists, err := s.Projects.Exists(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, true, exists)

	exists, err = s.Projects.Exists(project.ID + 99)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, false, exists)
}

func TestProjectCreateRejectsBadSlug(t *testing.T) {
	s := newStore(t)

	for _, bad := range []string{"", "Bad Slug", "-leading"} {
		if _, err := s.Projects.Create(bad, "Title"); err == nil {
			t.Errorf("Create(%q) should fail", bad)
		}
	}
}

func TestProjectDuplicateSlugConflicts(t *testing.T) {
	s := newStore(t)

	_, err := s.Projects.Create("dup", "First")
	testutil.AssertNoError(t, err)

	_, err = s.Projects.Create("dup", "Second")
	testutil.AssertError(t, err)
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %T: %v", err, err)
	}
}

func TestProjectList(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 3; i++ {
		_, err := s.Projects.Create(fmt.Sprintf("p%d", i), fmt.Sprintf("Project %d", i))
		testutil.AssertNoError(t, err)
	}

	projects, err := s.Projects.List()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, len(projects))
	testutil.AssertEqual(t, "p0", projects[0].Slug)
}

func sampleTasks(n int) []store.TaskRow {
	tasks := make([]store.TaskRow, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, store.TaskRow{
			TaskID:    fmt.Sprintf("T-%03d", i),
			TaskName:  fmt.Sprintf("Task %d", i),
			FileName:  fmt.Sprintf("row_%d.dat", i+1),
			Payload:   "{}",
			RowNumber: i + 2,
		})
	}
	return tasks
}

func TestImportRecord(t *testing.T) {
	s := newStore(t)
	project, err := s.Projects.Create("imports", "Imports")
	testutil.AssertNoError(t, err)

	file, err := s.Imports.Record(project.ID, "batch.json", "Raw", 2, sampleTasks(3))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, file.InsertedRows)
	testutil.AssertEqual(t, 2, file.SkippedRows)

	count, err := s.Tasks.CountByProject(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, count)

	tasks, err := s.Tasks.ListByImport(file.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, len(tasks))
	testutil.AssertEqual(t, "T-000", tasks[0].TaskID)
	testutil.AssertEqual(t, 2, tasks[0].RowNumber)

	files, err := s.Imports.List(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(files))
}

func TestImportRecordConflictRollsBack(t *testing.T) {
	s := newStore(t)
	project, err := s.Projects.Create("conflict", "Conflict")
	testutil.AssertNoError(t, err)

	_, err = s.Imports.Record(project.ID, "first.json", "Raw", 0, sampleTasks(2))
	testutil.AssertNoError(t, err)

	// Second batch collides on T-001 partway through; nothing from it may
	// survive.
	batch := []store.TaskRow{
		{TaskID: "T-100", TaskName: "fresh", FileName: "a.dat", Payload: "{}", RowNumber: 2},
		{TaskID: "T-001", TaskName: "dup", FileName: "b.dat", Payload: "{}", RowNumber: 3},
	}
	_, err = s.Imports.Record(project.ID, "second.json", "Raw", 0, batch)
	testutil.AssertError(t, err)
	var conflict *store.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %T: %v", err, err)
	}

	count, err := s.Tasks.CountByProject(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, count)

	existing, err := s.Tasks.ExistingTaskIDs(project.ID, []string{"T-100"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, false, existing["T-100"])

	files, err := s.Imports.List(project.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(files))
}

func TestExistingTaskIDsChunked(t *testing.T) {
	s := newStore(t)
	project, err := s.Projects.Create("chunks", "Chunks")
	testutil.AssertNoError(t, err)

	_, err = s.Imports.Record(project.ID, "batch.json", "Raw", 0, sampleTasks(5))
	testutil.AssertNoError(t, err)

	// Probe with far more IDs than one chunk holds.
	probe := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		probe = append(probe, fmt.Sprintf("T-%03d", i))
	}
	existing, err := s.Tasks.ExistingTaskIDs(project.ID, probe)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 5, len(existing))
	testutil.AssertEqual(t, true, existing["T-004"])
	testutil.AssertEqual(t, false, existing["T-999"])
}

func TestExistingTaskIDsScopedToProject(t *testing.T) {
	s := newStore(t)
	first, err := s.Projects.Create("first", "First")
	testutil.AssertNoError(t, err)
	second, err := s.Projects.Create("second", "Second")
	testutil.AssertNoError(t, err)

	_, err = s.Imports.Record(first.ID, "batch.json", "Raw", 0, sampleTasks(1))
	testutil.AssertNoError(t, err)

	// The same task_id is free in another project.
	_, err = s.Imports.Record(second.ID, "batch.json", "Raw", 0, sampleTasks(1))
	testutil.AssertNoError(t, err)

	existing, err := s.Tasks.ExistingTaskIDs(second.ID, []string{"T-000"})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, true, existing["T-000"])
}
