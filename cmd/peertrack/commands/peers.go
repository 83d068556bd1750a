package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/marmos91/peertrack/internal/cli/prompt"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/client"
	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers [FILE_ID]",
	Short: "List the peers seeding a file",
	Long: `List the peers that seed a catalog file.

The tracker only serves peers after the catalog has been walked, so the
file listing is fetched first. Without FILE_ID an interactive picker over
the catalog is shown.

Examples:
  # Peers of file 3
  peertrack peers 3

  # Pick the file interactively
  peertrack peers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPeers,
}

func runPeers(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	var pick client.PickFunc
	var pickErr error

	if len(args) == 1 {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid file id %q: %w", args[0], err)
		}
		pick = func([]wire.FileRecord) (uint32, bool) { return uint32(id), true }
	} else {
		if !cmdutil.IsInteractive() {
			return errors.New("FILE_ID is required when stdin is not a terminal")
		}
		pick = func(files []wire.FileRecord) (uint32, bool) {
			id, ok, err := prompt.SelectFile("Select a file", files)
			pickErr = err
			return id, ok && err == nil
		}
	}

	target := "interactive"
	if len(args) == 1 {
		target = args[0]
	}
	cmdutil.PrintInputs(cmd, "Listing peers", cmdutil.TrackerInputs([2]string{"File", target})...)

	c, err := cmdutil.TrackerClient()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	d, err := c.Discover(cmd.Context(), pick)
	if err != nil {
		return err
	}
	if pickErr != nil {
		if prompt.IsAborted(pickErr) {
			return nil
		}
		return pickErr
	}
	if !d.Selected {
		printer.Warning("No files in the catalog.")
		return nil
	}

	cmdutil.PrintInputs(cmd, fmt.Sprintf("File %d: %d peer(s)", d.FileID, len(d.Peers)))
	return printer.Print(output.PeerList(d.Peers))
}
