package commands

import (
	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the tracker's file catalog",
	Long: `List every file the tracker announces.

The catalog is fetched over the UDP protocol page by page, exactly as a
peer would, and the session is closed with THANKS.

Examples:
  # List files from the local tracker
  peertrack files

  # Query another tracker as JSON
  peertrack files --tracker tracker.example:9001 -o json`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	cmdutil.PrintInputs(cmd, "Listing tracker files", cmdutil.TrackerInputs()...)

	c, err := cmdutil.TrackerClient()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	files, err := c.ListFiles(cmd.Context())
	if err != nil {
		return err
	}

	return printer.Print(output.FileList(files))
}
