package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/render"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.json>",
	Short: "Convert a JSON export into an upload session",
	Long: `Convert reads a JSON export, resolves its records array, flattens nested
objects into dotted columns, and writes the result as a workbook upload.

The records array is auto-detected (largest top-level array of objects)
unless --records-path points at it explicitly, e.g. "data.items".

Examples:
  ingest convert export.json
  ingest convert export.json --records-path data.items
  ingest convert export.json --sheet Batch1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runConvert),
}

var (
	convertRecordsPath string
	convertSheet       string
	convertJSON        bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertRecordsPath, "records-path", "", "Dotted path to the records array (auto-detected if empty)")
	convertCmd.Flags().StringVar(&convertSheet, "sheet", "", "Sheet name for the generated workbook")
	convertCmd.Flags().BoolVar(&convertJSON, "json", false, "Output as JSON")
}

func runConvert(app *appctx.App, cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := app.Importer.ConvertJSON(data, convertRecordsPath, convertSheet, filepath.Base(path))
	if err != nil {
		return err
	}

	if convertJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return r.RenderJSON(map[string]interface{}{
			"upload_id":    result.UploadID,
			"sheet":        result.Sheet,
			"columns":      result.Columns,
			"total_rows":   result.TotalRows,
			"preview_rows": result.PreviewRows,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Upload %s created from %s\n", result.UploadID, filepath.Base(path))
	fmt.Fprintf(cmd.OutOrStdout(), "  sheet:   %s\n", result.Sheet)
	fmt.Fprintf(cmd.OutOrStdout(), "  rows:    %d\n", result.TotalRows)
	fmt.Fprintf(cmd.OutOrStdout(), "  columns: %d\n", len(result.Columns))
	for _, column := range result.Columns {
		fmt.Fprintf(cmd.OutOrStdout(), "    - %s\n", column)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nNext: ingest preview --project <project> --upload %s\n", result.UploadID)

	return nil
}
