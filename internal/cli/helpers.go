package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/id"
	"github.com/annolab/ingest/internal/mapping"
	"github.com/annolab/ingest/internal/store"
)

// resolveProject resolves a project reference given as a friendly ID
// (P-00001), a raw numeric ID, or a slug.
func resolveProject(app *appctx.App, ref string) (*store.Project, error) {
	if ref == "" {
		return nil, fmt.Errorf("no project specified (use --project)")
	}

	if id.IsFriendlyID(ref) {
		kind, seq, err := id.Parse(ref)
		if err != nil {
			return nil, err
		}
		if kind != id.TypeProject {
			return nil, fmt.Errorf("'%s' is not a project ID", ref)
		}
		return app.Store.Projects.Get(seq)
	}

	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return app.Store.Projects.Get(n)
	}

	return app.Store.Projects.GetBySlug(ref)
}

// loadMappingFile reads and decodes a mapping config from a JSON or YAML file.
func loadMappingFile(path string) (*mapping.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	cfg, err := mapping.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}
	return cfg, nil
}
