package cli

import (
	"errors"
	"fmt"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/id"
	"github.com/annolab/ingest/internal/render"
	"github.com/annolab/ingest/internal/slug"
	"github.com/annolab/ingest/internal/store"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <slug>",
	Short: "Create a project",
	Long: `Creates a project with the given slug. Slugs are unique; the title
defaults to the slug.

Examples:
  ingest projects create traffic-signs
  ingest projects create traffic-signs --title "Traffic Signs Q3"`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runProjectsCreate),
}

var projectsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all projects",
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runProjectsLs),
}

var (
	projectsCreateTitle string
	projectsJSON        bool
	projectsOne         bool
)

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsLsCmd)

	projectsCreateCmd.Flags().StringVar(&projectsCreateTitle, "title", "", "Project title (defaults to slug)")
	projectsLsCmd.Flags().BoolVar(&projectsJSON, "json", false, "Output as JSON")
	projectsLsCmd.Flags().BoolVarP(&projectsOne, "one", "1", false, "One slug per line")
}

func runProjectsCreate(app *appctx.App, cmd *cobra.Command, args []string) error {
	normalized, err := slug.Normalize(args[0])
	if err != nil {
		return err
	}

	project, err := app.Store.Projects.Create(normalized, projectsCreateTitle)
	if err != nil {
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			return fmt.Errorf("project '%s' already exists", normalized)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", project.Slug, id.FormatProject(project.ID))
	return nil
}

func runProjectsLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	type projectOut struct {
		ID    string `json:"id"`
		Slug  string `json:"slug"`
		Title string `json:"title"`
		Tasks int    `json:"tasks"`
	}

	projects, err := app.Store.Projects.List()
	if err != nil {
		return err
	}

	var out []projectOut
	for _, project := range projects {
		count, err := app.Store.Tasks.CountByProject(project.ID)
		if err != nil {
			return err
		}
		out = append(out, projectOut{
			ID:    id.FormatProject(project.ID),
			Slug:  project.Slug,
			Title: project.Title,
			Tasks: count,
		})
	}

	r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatTable})

	if projectsJSON {
		return r.RenderJSON(out)
	}

	if projectsOne {
		slugs := make([]string, 0, len(out))
		for _, project := range out {
			slugs = append(slugs, project.Slug)
		}
		return r.RenderList(slugs)
	}

	headers := []string{"ID", "Slug", "Title", "Tasks"}
	var rows [][]string
	for _, project := range out {
		rows = append(rows, []string{
			project.ID,
			project.Slug,
			project.Title,
			fmt.Sprintf("%d", project.Tasks),
		})
	}
	return r.RenderTable(headers, rows)
}
