package appctx

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/annolab/ingest/internal/db"
	"github.com/spf13/cobra"
)

func newBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "")
	return cmd
}

func migratedDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ingest.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return dbPath
}

func TestBootstrap(t *testing.T) {
	dbPath := migratedDB(t)
	t.Setenv("INGEST_DB_PATH", dbPath)

	app, err := Bootstrap(newBootstrapCmd(), DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB == nil || app.Store == nil || app.Importer == nil {
		t.Error("expected DB, Store, and Importer to be wired")
	}
	if app.Config.DBPath != dbPath {
		t.Errorf("DBPath = %q, want %q", app.Config.DBPath, dbPath)
	}
}

func TestBootstrapDBFlagOverride(t *testing.T) {
	t.Setenv("INGEST_DB_PATH", filepath.Join(t.TempDir(), "ignored.db"))
	dbPath := migratedDB(t)

	cmd := newBootstrapCmd()
	if err := cmd.Flags().Set("db", dbPath); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	app, err := Bootstrap(cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.DBPath != dbPath {
		t.Errorf("DBPath = %q, want flag override %q", app.Config.DBPath, dbPath)
	}
}

func TestBootstrapRejectsUnmigratedDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	database.Close()

	t.Setenv("INGEST_DB_PATH", dbPath)

	_, err = Bootstrap(newBootstrapCmd(), DefaultOptions())
	if err == nil {
		t.Fatal("expected error for unmigrated database")
	}
	if !strings.Contains(err.Error(), "ingestadm migrate") {
		t.Errorf("error should point at ingestadm migrate, got: %v", err)
	}
}

func TestBootstrapConfigOnly(t *testing.T) {
	t.Setenv("INGEST_DB_PATH", filepath.Join(t.TempDir(), "never-created.db"))

	app, err := Bootstrap(newBootstrapCmd(), ConfigOnly())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Error("ConfigOnly bootstrap should not open the database")
	}
	if app.Config == nil {
		t.Error("expected config to be loaded")
	}
}
