package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Task ingestion CLI for converting, mapping, and importing batches",
	Long: `ingest turns raw JSON exports into reviewable task batches on a SQLite
backend. A typical session converts a JSON file into a workbook upload,
previews the column mapping, and confirms the batch into a project.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides INGEST_DB_PATH)")
}
