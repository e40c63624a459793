// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, database opening, and import service
// wiring to reduce boilerplate across commands.
package appctx

import (
	"fmt"

	"github.com/annolab/ingest/internal/config"
	"github.com/annolab/ingest/internal/db"
	"github.com/annolab/ingest/internal/importer"
	"github.com/annolab/ingest/internal/store"
	"github.com/annolab/ingest/internal/uploads"
	"github.com/spf13/cobra"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB with the domain stores (nil if NeedsDB is false)
	Store *store.Store

	// Importer runs import sessions (nil if NeedsDB is false)
	Importer *importer.Service
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	// Defaults to true.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// ConfigOnly returns options that skip opening the database.
func ConfigOnly() Options {
	return Options{NeedsDB: false}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// It loads config, opens the database, and wires the import service.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Override DB path from --db flag if provided
	if dbFlag := cmd.Flag("db"); dbFlag != nil {
		if dbPath := dbFlag.Value.String(); dbPath != "" {
			app.Config.DBPath = dbPath
		}
	}

	if !opts.NeedsDB {
		return app, nil
	}

	database, err := db.Open(app.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RequiresMigrationError(); err != nil {
		database.Close()
		return nil, err
	}
	app.DB = database
	app.Store = store.New(database)

	manager, err := uploads.NewManager(app.Config.UploadDir)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Importer = importer.NewService(app.Store, manager, app.Config.ImportFilesDir, app.Config.PreviewLimit)

	return app, nil
}
