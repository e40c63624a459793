package store

import (
	"database/sql"
	"fmt"

	"github.com/annolab/ingest/internal/slug"
)

// Project is an annotation project tasks are imported into.
type Project struct {
	ID        int64
	Slug      string
	Title     string
	CreatedAt string
}

// ProjectStore manages project records.
type ProjectStore struct {
	store *Store
}

// Create inserts a project and returns it with its assigned ID.
func (ps *ProjectStore) Create(projectSlug, title string) (*Project, error) {
	if err := slug.Validate(projectSlug); err != nil {
		return nil, fmt.Errorf("invalid project slug: %w", err)
	}
	if title == "" {
		title = projectSlug
	}

	var project *Project
	err := ps.store.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("INSERT INTO projects (slug, title) VALUES (?, ?)", projectSlug, title)
		if err != nil {
			return asConflict(fmt.Errorf("failed to insert project: %w", err))
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read project id: %w", err)
		}
		project = &Project{ID: rowID, Slug: projectSlug, Title: title}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Get returns a project by row ID.
func (ps *ProjectStore) Get(id int64) (*Project, error) {
	row := ps.store.db.QueryRow(
		"SELECT id, slug, title, created_at FROM projects WHERE id = ?", id)
	return scanProject(row)
}

// GetBySlug returns a project by slug.
func (ps *ProjectStore) GetBySlug(slug string) (*Project, error) {
	row := ps.store.db.QueryRow(
		"SELECT id, slug, title, created_at FROM projects WHERE slug = ?", slug)
	return scanProject(row)
}

// Exists reports whether a project with the given ID exists.
func (ps *ProjectStore) Exists(id int64) (bool, error) {
	var count int
	err := ps.store.db.QueryRow("SELECT COUNT(*) FROM projects WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check project existence: %w", err)
	}
	return count > 0, nil
}

// List returns all projects ordered by ID.
func (ps *ProjectStore) List() ([]*Project, error) {
	rows, err := ps.store.db.Query(
		"SELECT id, slug, title, created_at FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}
