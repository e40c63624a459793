package cli

import (
	"fmt"

	"github.com/annolab/ingest/internal/cli/appctx"
	"github.com/spf13/cobra"
)

var abortCmd = &cobra.Command{
	Use:   "abort <upload-id>",
	Short: "Discard an upload session and its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runAbort),
}

func init() {
	rootCmd.AddCommand(abortCmd)
}

func runAbort(app *appctx.App, cmd *cobra.Command, args []string) error {
	app.Importer.Abort(args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Upload %s discarded\n", args[0])
	return nil
}
