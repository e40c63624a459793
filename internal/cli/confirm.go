package cli

import (
	"fmt"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/id"
	"github.com/annolab/ingest/internal/importer"
	"github.com/annolab/ingest/internal/render"
	"github.com/spf13/cobra"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Commit a mapped upload into a project",
	Long: `Confirm streams the whole upload through the mapping and writes the batch
in a single transaction. Duplicate task IDs are skipped with an issue;
the original JSON is retained in the import-files directory and the
upload artifacts are discarded after a successful commit.

Examples:
  ingest confirm --project demo --upload 3fa1... --mapping map.yaml
  ingest confirm --project demo --rows rows.json --mapping map.yaml`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runConfirm),
}

var (
	confirmProject  string
	confirmUpload   string
	confirmMapping  string
	confirmRowsFile string
	confirmJSON     bool
)

func init() {
	rootCmd.AddCommand(confirmCmd)

	confirmCmd.Flags().StringVar(&confirmProject, "project", "", "Project (friendly ID, numeric ID, or slug)")
	confirmCmd.Flags().StringVar(&confirmUpload, "upload", "", "Upload ID from a previous convert")
	confirmCmd.Flags().StringVar(&confirmMapping, "mapping", "", "Mapping config file (JSON or YAML, required)")
	confirmCmd.Flags().StringVar(&confirmRowsFile, "rows", "", "JSON file with an array of flat records (instead of --upload)")
	confirmCmd.Flags().BoolVar(&confirmJSON, "json", false, "Output as JSON")
}

func runConfirm(app *appctx.App, cmd *cobra.Command, args []string) error {
	project, err := resolveProject(app, confirmProject)
	if err != nil {
		return err
	}

	if confirmMapping == "" {
		return fmt.Errorf("no mapping specified (use --mapping)")
	}
	cfg, err := loadMappingFile(confirmMapping)
	if err != nil {
		return err
	}

	var inlineRows []map[string]any
	if confirmRowsFile != "" {
		if inlineRows, err = loadRowsFile(confirmRowsFile); err != nil {
			return err
		}
	}

	result, err := app.Importer.Confirm(&importer.ConfirmRequest{
		ProjectID: project.ID,
		Mapping:   cfg,
		UploadID:  confirmUpload,
		Rows:      inlineRows,
	})
	if err != nil {
		return err
	}

	if confirmJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return r.RenderJSON(map[string]interface{}{
			"project_id":     id.FormatProject(project.ID),
			"import_file_id": id.FormatImport(result.ImportFileID),
			"inserted":       result.Inserted,
			"skipped":        result.Skipped,
			"issues":         result.Issues,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s) into %s (%s), %d skipped\n",
		result.Inserted, project.Slug, id.FormatProject(project.ID), result.Skipped)
	if result.ImportFileID != 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  import file: %s\n", id.FormatImport(result.ImportFileID))
	}
	printIssues(cmd, result.Issues)

	return nil
}
