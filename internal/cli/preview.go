package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/importer"
	"github.com/annolab/ingest/internal/mapping"
	"github.com/annolab/ingest/internal/render"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Dry-run the mapping against an upload",
	Long: `Preview maps a bounded read of an upload through the mapping config and
shows the resulting task candidates without writing anything.

When no --mapping file is given, a mapping is suggested from the upload's
columns; use --save-mapping to write the effective mapping for editing.

Examples:
  ingest preview --project demo --upload 3fa1...
  ingest preview --project demo --upload 3fa1... --mapping map.yaml
  ingest preview --project demo --upload 3fa1... --save-mapping map.yaml`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runPreview),
}

var (
	previewProject     string
	previewUpload      string
	previewMapping     string
	previewSaveMapping string
	previewRowsFile    string
	previewLimit       int
	previewJSON        bool
)

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVar(&previewProject, "project", "", "Project (friendly ID, numeric ID, or slug)")
	previewCmd.Flags().StringVar(&previewUpload, "upload", "", "Upload ID from a previous convert")
	previewCmd.Flags().StringVar(&previewMapping, "mapping", "", "Mapping config file (JSON or YAML)")
	previewCmd.Flags().StringVar(&previewSaveMapping, "save-mapping", "", "Write the effective mapping to this file")
	previewCmd.Flags().StringVar(&previewRowsFile, "rows", "", "JSON file with an array of flat records (instead of --upload)")
	previewCmd.Flags().IntVar(&previewLimit, "limit", 0, "Maximum number of rows to preview (0 = configured default)")
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "Output as JSON")
}

func runPreview(app *appctx.App, cmd *cobra.Command, args []string) error {
	project, err := resolveProject(app, previewProject)
	if err != nil {
		return err
	}

	var cfg *mapping.Config
	if previewMapping != "" {
		if cfg, err = loadMappingFile(previewMapping); err != nil {
			return err
		}
	}

	var inlineRows []map[string]any
	if previewRowsFile != "" {
		if inlineRows, err = loadRowsFile(previewRowsFile); err != nil {
			return err
		}
	}

	result, err := app.Importer.Preview(&importer.PreviewRequest{
		ProjectID: project.ID,
		Mapping:   cfg,
		UploadID:  previewUpload,
		Rows:      inlineRows,
		Limit:     previewLimit,
	})
	if err != nil {
		return err
	}

	if previewSaveMapping != "" {
		if err := saveMapping(result.Mapping, previewSaveMapping); err != nil {
			return err
		}
	}

	if previewJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return r.RenderJSON(map[string]interface{}{
			"sheet":      result.Sheet,
			"total_rows": result.TotalRows,
			"columns":    result.Columns,
			"rows":       result.Rows,
			"issues":     result.Issues,
			"mapping":    result.Mapping,
			"suggested":  result.Suggested,
		})
	}

	if result.Suggested {
		fmt.Fprintln(cmd.OutOrStdout(), "Using a suggested mapping (no --mapping given).")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Previewing %d of %d row(s) from sheet %q\n\n", len(result.Rows), result.TotalRows, result.Sheet)

	headers := []string{"Row", "Task ID", "Task Name", "File Name", "Payload Keys"}
	var rows [][]string
	for _, candidate := range result.Rows {
		rows = append(rows, []string{
			fmt.Sprintf("%d", candidate.Row),
			candidate.TaskID,
			candidate.TaskName,
			candidate.FileName,
			payloadKeys(candidate.Payload),
		})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatTable})
	if err := r.RenderTable(headers, rows); err != nil {
		return err
	}

	printIssues(cmd, result.Issues)
	return nil
}

func payloadKeys(payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	return strings.Join(keys, ",")
}

func printIssues(cmd *cobra.Command, issues []importer.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d issue(s):\n", len(issues))
	for _, issue := range issues {
		if issue.Row > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  row %d: %s\n", issue.Row, issue.Message)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue.Message)
		}
	}
}

// saveMapping writes a mapping config as YAML or JSON based on the file
// extension.
func saveMapping(cfg *mapping.Config, path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = mapping.EncodeYAML(cfg)
	} else {
		data, err = mapping.EncodeJSON(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}
	return nil
}

// loadRowsFile reads a JSON file holding an array of flat records, for
// rows-mode preview and confirm.
func loadRowsFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("invalid rows file %s: %w", path, err)
	}
	return rows, nil
}
