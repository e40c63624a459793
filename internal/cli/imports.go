package cli

import (
	"fmt"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/id"
	"github.com/annolab/ingest/internal/render"
	"github.com/spf13/cobra"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List confirmed imports for a project",
	Long: `Lists the import files recorded for a project, newest first.

Examples:
  ingest imports --project demo
  ingest imports --project P-00001 --json`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runImports),
}

var (
	importsProject string
	importsJSON    bool
)

func init() {
	rootCmd.AddCommand(importsCmd)

	importsCmd.Flags().StringVar(&importsProject, "project", "", "Project (friendly ID, numeric ID, or slug)")
	importsCmd.Flags().BoolVar(&importsJSON, "json", false, "Output as JSON")
}

func runImports(app *appctx.App, cmd *cobra.Command, args []string) error {
	project, err := resolveProject(app, importsProject)
	if err != nil {
		return err
	}

	files, err := app.Store.Imports.List(project.ID)
	if err != nil {
		return err
	}

	type importOut struct {
		ID       string `json:"id"`
		FileName string `json:"file_name"`
		Sheet    string `json:"sheet,omitempty"`
		Inserted int    `json:"inserted"`
		Skipped  int    `json:"skipped"`
		Created  string `json:"created_at"`
	}

	var out []importOut
	for _, file := range files {
		out = append(out, importOut{
			ID:       id.FormatImport(file.ID),
			FileName: file.FileName,
			Sheet:    file.SheetName,
			Inserted: file.InsertedRows,
			Skipped:  file.SkippedRows,
			Created:  file.CreatedAt,
		})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatTable})

	if importsJSON {
		return r.RenderJSON(out)
	}

	headers := []string{"ID", "File", "Sheet", "Inserted", "Skipped", "Created"}
	var rows [][]string
	for _, file := range out {
		rows = append(rows, []string{
			file.ID,
			file.FileName,
			file.Sheet,
			fmt.Sprintf("%d", file.Inserted),
			fmt.Sprintf("%d", file.Skipped),
			file.Created,
		})
	}
	return r.RenderTable(headers, rows)
}
