// Package uploads manages the on-disk artifacts of an import session: the
// derived workbook, the original JSON, and a metadata sidecar, all keyed by
// an opaque upload ID.
package uploads

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Metadata is the sidecar written next to an upload's artifacts.
type Metadata struct {
	Type        string   `json:"type"`
	Source      string   `json:"source,omitempty"`
	Sheet       string   `json:"sheet,omitempty"`
	RecordsPath string   `json:"records_path,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        int      `json:"rows"`
}

// Manager owns the upload directory.
type Manager struct {
	root string
}

// NewManager returns a manager rooted at dir, creating it if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Manager{root: dir}, nil
}

// Root returns the upload directory.
func (m *Manager) Root() string {
	return m.root
}

// NewUploadID returns a fresh opaque upload ID.
func (m *Manager) NewUploadID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ExcelPath returns the workbook artifact path for an upload.
func (m *Manager) ExcelPath(uploadID string) string {
	return filepath.Join(m.root, uploadID+".xlsx")
}

// JSONPath returns the original-JSON artifact path for an upload.
func (m *Manager) JSONPath(uploadID string) string {
	return filepath.Join(m.root, uploadID+".json")
}

// MetadataPath returns the metadata sidecar path for an upload.
func (m *Manager) MetadataPath(uploadID string) string {
	return filepath.Join(m.root, uploadID+".meta.json")
}

// Exists reports whether the upload's workbook artifact is present.
func (m *Manager) Exists(uploadID string) bool {
	_, err := os.Stat(m.ExcelPath(uploadID))
	return err == nil
}

// WriteMetadata writes the metadata sidecar.
func (m *Manager) WriteMetadata(uploadID string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode upload metadata: %w", err)
	}
	if err := os.WriteFile(m.MetadataPath(uploadID), data, 0644); err != nil {
		return fmt.Errorf("failed to write upload metadata: %w", err)
	}
	return nil
}

// ReadMetadata reads the metadata sidecar.
func (m *Manager) ReadMetadata(uploadID string) (*Metadata, error) {
	data, err := os.ReadFile(m.MetadataPath(uploadID))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode upload metadata: %w", err)
	}
	return &meta, nil
}

// Delete removes all artifacts of an upload. Missing files are ignored.
func (m *Manager) Delete(uploadID string) {
	for _, path := range []string{m.ExcelPath(uploadID), m.JSONPath(uploadID), m.MetadataPath(uploadID)} {
		os.Remove(path)
	}
}

// StoredName derives the unique durable name the upload's source file will be
// retained under.
func (m *Manager) StoredName(uploadID string) (string, error) {
	meta, err := m.ReadMetadata(uploadID)
	if err != nil {
		return "", err
	}
	source := meta.Source
	if source == "" {
		source = uploadID + ".json"
	}
	return m.NewUploadID() + "_" + SafeFilename(stem(source), filepath.Ext(source)), nil
}

// RetainAs moves the upload's original JSON into durable import storage under
// the given name.
func (m *Manager) RetainAs(uploadID, importFilesDir, storedName string) error {
	if err := os.MkdirAll(importFilesDir, 0755); err != nil {
		return fmt.Errorf("failed to create import files directory: %w", err)
	}

	jsonPath := m.JSONPath(uploadID)
	if _, err := os.Stat(jsonPath); err != nil {
		return fmt.Errorf("upload source file not found: %w", err)
	}
	if err := os.Rename(jsonPath, filepath.Join(importFilesDir, storedName)); err != nil {
		return fmt.Errorf("failed to store import file: %w", err)
	}
	return nil
}

// Retain derives a stored name and moves the upload's original JSON into
// durable import storage, returning the name.
func (m *Manager) Retain(uploadID, importFilesDir string) (string, error) {
	stored, err := m.StoredName(uploadID)
	if err != nil {
		return "", err
	}
	if err := m.RetainAs(uploadID, importFilesDir, stored); err != nil {
		return "", err
	}
	return stored, nil
}

var invalidFilenamePattern = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SafeFilename sanitizes a filename stem and appends the extension. Invalid
// characters become underscores and the stem is capped at 150 characters.
func SafeFilename(name, extension string) string {
	candidate := invalidFilenamePattern.ReplaceAllString(name, "_")
	candidate = strings.Trim(strings.TrimSpace(candidate), ".")
	if candidate == "" {
		candidate = "converted"
	}
	if len(candidate) > 150 {
		candidate = candidate[:150]
	}
	return candidate + extension
}

// DownloadName derives a user-facing workbook filename for an upload from its
// metadata, falling back to the upload ID.
func (m *Manager) DownloadName(uploadID string) string {
	meta, err := m.ReadMetadata(uploadID)
	if err == nil && meta.Source != "" {
		if s := stem(meta.Source); s != "" {
			return SafeFilename(s, ".xlsx")
		}
	}
	return SafeFilename(uploadID, ".xlsx")
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
