package commands

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/prompt"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register [IP:PORT]",
	Short: "Register a seeder endpoint with the tracker",
	Long: `Announce that a peer at IP:PORT seeds the tracker's files.

A peer registered again from the same IP replaces its port. Without an
argument the endpoint is prompted for.

Examples:
  # Register a seeder
  peertrack register 192.0.2.10:6881

  # Prompt for the endpoint
  peertrack register`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	var peer wire.PeerRecord
	if len(args) == 1 {
		peer, err = parseEndpoint(args[0])
		if err != nil {
			return err
		}
	} else {
		if !cmdutil.IsInteractive() {
			return errors.New("IP:PORT is required when stdin is not a terminal")
		}
		peer, err = prompt.Endpoint("Seeder endpoint (ip:port)", "")
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}

	cmdutil.PrintInputs(cmd, "Registering seeder", cmdutil.TrackerInputs([2]string{"Endpoint", peer.String()})...)

	c, err := cmdutil.TrackerClient()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if err := c.Register(cmd.Context(), peer); err != nil {
		return err
	}

	printer.Success(fmt.Sprintf("Registered %s with %s", peer, c.RemoteAddr()))
	return nil
}

func parseEndpoint(s string) (wire.PeerRecord, error) {
	if err := prompt.ValidateEndpoint(s); err != nil {
		return wire.PeerRecord{}, fmt.Errorf("invalid endpoint %q: %w", s, err)
	}
	return wire.PeerFromAddrPort(netip.MustParseAddrPort(strings.TrimSpace(s)))
}
