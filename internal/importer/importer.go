// Package importer orchestrates import sessions: converting uploaded JSON to
// a workbook artifact, previewing the mapped output, and confirming the batch
// into the database.
package importer

import (
	"fmt"

	"github.com/annolab/ingest/internal/store"
	"github.com/annolab/ingest/internal/uploads"
)

// ImportError is a fatal, session-level failure. Field-level problems are
// reported as Issues instead.
type ImportError struct {
	Msg string
	Err error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func importErrorf(err error, format string, args ...any) *ImportError {
	return &ImportError{Msg: fmt.Sprintf(format, args...), Err: err}
}

// Issue is a per-row, non-fatal problem surfaced to the operator.
type Issue struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Service runs import sessions against one database and upload directory.
type Service struct {
	store          *store.Store
	uploads        *uploads.Manager
	importFilesDir string
	previewLimit   int
}

// NewService wires an import service.
func NewService(st *store.Store, um *uploads.Manager, importFilesDir string, previewLimit int) *Service {
	if previewLimit < 1 {
		previewLimit = 200
	}
	return &Service{
		store:          st,
		uploads:        um,
		importFilesDir: importFilesDir,
		previewLimit:   previewLimit,
	}
}

// Uploads exposes the artifact manager, for download-name lookups.
func (s *Service) Uploads() *uploads.Manager {
	return s.uploads
}

// Abort discards an upload's artifacts. The session is over afterwards;
// aborting an unknown or already-aborted upload is a no-op.
func (s *Service) Abort(uploadID string) {
	s.uploads.Delete(uploadID)
}

func (s *Service) ensureProject(projectID int64) error {
	exists, err := s.store.Projects.Exists(projectID)
	if err != nil {
		return importErrorf(err, "failed to check project %d", projectID)
	}
	if !exists {
		return &ImportError{Msg: fmt.Sprintf("project %d not found", projectID)}
	}
	return nil
}
