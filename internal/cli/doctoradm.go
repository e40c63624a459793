package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/annolab/ingest/internal/config"
	"github.com/annolab/ingest/internal/db"
	"github.com/annolab/ingest/internal/render"
	"github.com/spf13/cobra"
)

var doctorAdmCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database health and configuration",
	Long:  `Performs health checks on the database, schema, upload directory, and ID sequences. This is an administrative operation.`,
	RunE:  runDoctorAdm,
}

var (
	doctorAdmJSON    bool
	doctorAdmFix     bool
	doctorAdmVerbose bool
)

type checkResultAdm struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReportAdm struct {
	DBPath        string           `json:"db_path"`
	Checks        []checkResultAdm `json:"checks"`
	Warnings      int              `json:"warnings"`
	Errors        int              `json:"errors"`
	OverallStatus string           `json:"overall_status"`
}

func init() {
	rootAdmCmd.AddCommand(doctorAdmCmd)
	doctorAdmCmd.Flags().BoolVar(&doctorAdmJSON, "json", false, "Output JSON")
	doctorAdmCmd.Flags().BoolVar(&doctorAdmFix, "fix", false, "Auto-repair issues")
	doctorAdmCmd.Flags().BoolVar(&doctorAdmVerbose, "verbose", false, "Verbose output")
}

func runDoctorAdm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	report := &doctorReportAdm{
		DBPath:        cfg.DBPath,
		Checks:        []checkResultAdm{},
		OverallStatus: "ok",
	}

	report.Checks = append(report.Checks, checkDatabaseFileAdm(cfg.DBPath)...)

	database, err := db.Open(cfg.DBPath)
	if err == nil {
		defer database.Close()
		report.Checks = append(report.Checks, checkDatabasePragmasAdm(database)...)
		report.Checks = append(report.Checks, checkSchemaAdm(database)...)
		report.Checks = append(report.Checks, checkDataIntegrityAdm(database)...)
		report.Checks = append(report.Checks, checkSequenceDriftAdm(database)...)
		report.Checks = append(report.Checks, checkUploadsAdm(database, cfg.UploadDir)...)
	} else {
		report.Checks = append(report.Checks, checkResultAdm{
			Name:    "database_open",
			Status:  "error",
			Message: fmt.Sprintf("Failed to open database: %v", err),
		})
	}

	for _, check := range report.Checks {
		if check.Status == "warning" {
			report.Warnings++
		} else if check.Status == "error" {
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}

	if doctorAdmFix && database != nil {
		applyFixesAdm(cmd, database)
	}

	if doctorAdmJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return r.RenderJSON(report)
	}

	printHumanReportAdm(cmd, report)

	if report.Errors > 0 {
		os.Exit(1)
	}

	return nil
}

func checkDatabaseFileAdm(dbPath string) []checkResultAdm {
	var results []checkResultAdm

	info, err := os.Stat(dbPath)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
		})
		return results
	}

	results = append(results, checkResultAdm{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	})

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	} else {
		f.Close()
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "ok",
			Message: "Database file is readable and writable",
		})
	}

	return results
}

func checkDatabasePragmasAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResultAdm{
			Name:    "wal_mode",
			Status:  "ok",
			Message: "WAL mode enabled",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
			Details: []string{"Run 'PRAGMA journal_mode=WAL' to enable"},
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResultAdm{
			Name:    "foreign_keys",
			Status:  "ok",
			Message: "Foreign keys enabled",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
			Details: []string{"Critical: foreign key constraints are not enforced"},
		})
	}

	var integrityCheck string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if integrityCheck == "ok" {
		results = append(results, checkResultAdm{
			Name:    "integrity_check",
			Status:  "ok",
			Message: "Database integrity check passed",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrityCheck),
			Details: []string{"Database may be corrupted", "Restore from backup recommended"},
		})
	}

	return results
}

func checkSchemaAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	requiredTables := []string{"projects", "import_files", "tasks"}
	var missingTables []string

	for _, table := range requiredTables {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil || count == 0 {
			missingTables = append(missingTables, table)
		}
	}

	if len(missingTables) == 0 {
		results = append(results, checkResultAdm{
			Name:    "schema_tables",
			Status:  "ok",
			Message: fmt.Sprintf("All required tables present (%d/%d)", len(requiredTables), len(requiredTables)),
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "schema_tables",
			Status:  "error",
			Message: fmt.Sprintf("Missing tables: %v", missingTables),
			Details: []string{"Run 'ingestadm migrate' to create missing tables"},
		})
	}

	return results
}

func checkDataIntegrityAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var orphanedTasks int
	database.QueryRow(`
		SELECT COUNT(*) FROM tasks
		WHERE import_file_id NOT IN (SELECT id FROM import_files)
	`).Scan(&orphanedTasks)

	if orphanedTasks == 0 {
		results = append(results, checkResultAdm{
			Name:    "orphaned_tasks",
			Status:  "ok",
			Message: "No orphaned tasks",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "orphaned_tasks",
			Status:  "warning",
			Message: fmt.Sprintf("%d tasks reference non-existent import files", orphanedTasks),
		})
	}

	var duplicateIDs int
	database.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT project_id, task_id, COUNT(*) as cnt
			FROM tasks
			GROUP BY project_id, task_id
			HAVING cnt > 1
		)
	`).Scan(&duplicateIDs)

	if duplicateIDs == 0 {
		results = append(results, checkResultAdm{
			Name:    "duplicate_task_ids",
			Status:  "ok",
			Message: "No duplicate task IDs",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "duplicate_task_ids",
			Status:  "error",
			Message: fmt.Sprintf("%d duplicate task ID(s) within a project", duplicateIDs),
			Details: []string{"Manual intervention required to resolve duplicates"},
		})
	}

	return results
}

func checkSequenceDriftAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	drifts, err := db.SequenceDrifts(database, db.DefaultSequenceSpecs())
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "sequence_drift",
			Status:  "error",
			Message: fmt.Sprintf("Failed to check sqlite_sequence drift: %v", err),
		})
		return results
	}

	if len(drifts) == 0 {
		results = append(results, checkResultAdm{
			Name:    "sequence_drift",
			Status:  "ok",
			Message: "All sqlite_sequence values are in sync",
		})
		return results
	}

	details := make([]string, 0, len(drifts))
	for _, drift := range drifts {
		details = append(details, fmt.Sprintf("%s: sqlite_sequence=%d, max_id=%d", drift.Table, drift.SeqValue, drift.MaxID))
	}

	results = append(results, checkResultAdm{
		Name:    "sequence_drift",
		Status:  "error",
		Message: fmt.Sprintf("Detected sqlite_sequence drift (%d table(s))", len(drifts)),
		Details: details,
	})

	return results
}

func checkUploadsAdm(database *db.DB, uploadDir string) []checkResultAdm {
	var results []checkResultAdm

	info, err := os.Stat(uploadDir)
	if err != nil || !info.IsDir() {
		results = append(results, checkResultAdm{
			Name:    "upload_dir_exists",
			Status:  "warning",
			Message: fmt.Sprintf("Upload directory not found: %s", uploadDir),
			Details: []string{"It is created on first convert"},
		})
		return results
	}

	results = append(results, checkResultAdm{
		Name:    "upload_dir_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Upload directory: %s", uploadDir),
	})

	// Pending sessions are uploads that were converted but never confirmed
	// or aborted.
	pending := 0
	entries, _ := os.ReadDir(uploadDir)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".xlsx") {
			pending++
		}
	}

	if pending == 0 {
		results = append(results, checkResultAdm{
			Name:    "pending_uploads",
			Status:  "ok",
			Message: "No pending upload sessions",
		})
	} else {
		results = append(results, checkResultAdm{
			Name:    "pending_uploads",
			Status:  "ok",
			Message: fmt.Sprintf("%d pending upload session(s)", pending),
			Details: []string{"Use 'ingest abort <upload-id>' to discard stale sessions"},
		})
	}

	return results
}

func applyFixesAdm(cmd *cobra.Command, database *db.DB) {
	var outputs []string

	if drifts, err := db.FixSequenceDrifts(database, db.DefaultSequenceSpecs()); err != nil {
		outputs = append(outputs, fmt.Sprintf("Sequence repair failed: %v", err))
	} else if len(drifts) > 0 {
		outputs = append(outputs, fmt.Sprintf("Fixed sqlite_sequence drift for %d table(s)", len(drifts)))
	} else {
		outputs = append(outputs, "No sqlite_sequence drift detected")
	}

	if len(outputs) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "\n--fix results")
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(outputs, "\n"))
	}
}

func printHumanReportAdm(cmd *cobra.Command, report *doctorReportAdm) {
	fmt.Fprintf(cmd.OutOrStdout(), "ingestadm doctor\n\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", report.DBPath)

	for _, check := range report.Checks {
		icon := "✓"
		if check.Status == "warning" {
			icon = "⚠"
		} else if check.Status == "error" {
			icon = "✗"
		}

		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", icon, check.Message)

		if doctorAdmVerbose && len(check.Details) > 0 {
			for _, detail := range check.Details {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", detail)
			}
		}
	}
	fmt.Fprintln(cmd.OutOrStdout())

	if report.Errors > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Summary: All checks passed ✓\n")
	}

	if report.Warnings > 0 || report.Errors > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nRun with --verbose for detailed information\n")
	}
}
