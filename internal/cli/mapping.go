package cli

import (
	"fmt"
	"os"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/annolab/ingest/internal/mapping"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Work with mapping configs",
}

var mappingSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a mapping for an upload",
	Long: `Suggest derives a mapping config from an upload's columns: a generated
UUID task ID, name and file columns picked by header heuristics, and all
remaining columns selected into the payload.

Examples:
  ingest mapping suggest --upload 3fa1...
  ingest mapping suggest --upload 3fa1... --format json -o map.json`,
	RunE: appctx.WithApp(appctx.DefaultOptions(), runMappingSuggest),
}

var mappingDiffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Diff two mapping config files",
	Long: `Diff decodes two mapping files (JSON or YAML), canonicalizes both, and
prints a unified diff. Files that differ only in formatting or field
order produce no output.`,
	Args: cobra.ExactArgs(2),
	RunE: runMappingDiff,
}

var (
	mappingSuggestUpload string
	mappingSuggestFormat string
	mappingSuggestOut    string
)

func init() {
	rootCmd.AddCommand(mappingCmd)
	mappingCmd.AddCommand(mappingSuggestCmd)
	mappingCmd.AddCommand(mappingDiffCmd)

	mappingSuggestCmd.Flags().StringVar(&mappingSuggestUpload, "upload", "", "Upload ID from a previous convert")
	mappingSuggestCmd.Flags().StringVar(&mappingSuggestFormat, "format", "yaml", "Output format: yaml or json")
	mappingSuggestCmd.Flags().StringVarP(&mappingSuggestOut, "out", "o", "", "Write the mapping to this file instead of stdout")
}

func runMappingSuggest(app *appctx.App, cmd *cobra.Command, args []string) error {
	if mappingSuggestUpload == "" {
		return fmt.Errorf("no upload specified (use --upload)")
	}

	meta, err := app.Importer.Uploads().ReadMetadata(mappingSuggestUpload)
	if err != nil {
		return fmt.Errorf("upload not found: %w", err)
	}

	cfg := mapping.Suggest(meta.Columns)
	if meta.Sheet != "" {
		cfg.Sheet = meta.Sheet
	}

	var data []byte
	switch mappingSuggestFormat {
	case "yaml":
		data, err = mapping.EncodeYAML(cfg)
	case "json":
		data, err = mapping.EncodeJSON(cfg)
	default:
		return fmt.Errorf("unknown format '%s' (use yaml or json)", mappingSuggestFormat)
	}
	if err != nil {
		return err
	}

	if mappingSuggestOut != "" {
		if err := os.WriteFile(mappingSuggestOut, data, 0644); err != nil {
			return fmt.Errorf("failed to write mapping file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote mapping to %s\n", mappingSuggestOut)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runMappingDiff(cmd *cobra.Command, args []string) error {
	left, err := canonicalMapping(args[0])
	if err != nil {
		return err
	}
	right, err := canonicalMapping(args[1])
	if err != nil {
		return err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(left),
		B:        difflib.SplitLines(right),
		FromFile: args[0],
		ToFile:   args[1],
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

// canonicalMapping decodes a mapping file and re-encodes it as indented JSON
// so diffs compare semantics, not formatting.
func canonicalMapping(path string) (string, error) {
	cfg, err := loadMappingFile(path)
	if err != nil {
		return "", err
	}
	data, err := mapping.EncodeJSON(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
