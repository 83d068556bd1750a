package commands

import (
	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show directory counts",
	Long: `Show the directory backend and how many files and peers it holds.

Examples:
  peertrack stats
  peertrack stats -o json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	stats, err := cmdutil.APIClient().Stats(cmd.Context())
	if err != nil {
		return err
	}

	return printer.Print(output.StatsView(*stats))
}
