package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "ingestadm",
	Short: "Administrative CLI for the ingest database lifecycle",
	Long: `ingestadm is the administrative companion to ingest. It handles database
migrations and health checks. These operations should not be part of a
normal import session.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	rootAdmCmd.PersistentFlags().String("db", "", "Path to database file (overrides INGEST_DB_PATH)")
}
