package commands

import (
	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List live tracker sessions",
	Long: `List the protocol sessions the tracker currently holds, one per client
address, with their state and paging cursors.

Examples:
  peertrack sessions
  peertrack sessions -o yaml`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	sessions, err := cmdutil.APIClient().Sessions(cmd.Context())
	if err != nil {
		return err
	}

	return printer.Print(output.SessionList(sessions))
}
