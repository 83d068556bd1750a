// Package commands implements the peertrack CLI: the tracker server and the
// peer-side and admin client commands.
package commands

import (
	"os"

	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/cmd/peertrack/commands/config"
	"github.com/marmos91/peertrack/pkg/client"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "peertrack",
	Short: "peertrack - UDP peer discovery tracker",
	Long: `peertrack is a lightweight tracker that announces a catalog of files and
the peers that seed them over a paged, acknowledged UDP protocol.

Run 'peertrack start' to serve the tracker. The files, peers and register
commands speak the UDP protocol as a peer would; status and sessions query
the admin HTTP API.

Use "peertrack [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.Tracker, _ = cmd.Flags().GetString("tracker")
		cmdutil.Flags.API, _ = cmd.Flags().GetString("api")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
		cmdutil.Flags.Retries, _ = cmd.Flags().GetInt("retries")
		cmdutil.Flags.PacketMaxSize, _ = cmd.Flags().GetInt("packet-max-size")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/peertrack/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().String("tracker", cmdutil.EnvOr("PEERTRACK_TRACKER", cmdutil.DefaultTracker), "Tracker UDP address (host:port)")
	rootCmd.PersistentFlags().String("api", cmdutil.EnvOr("PEERTRACK_API", cmdutil.DefaultAPI), "Admin API base URL")
	rootCmd.PersistentFlags().Duration("timeout", client.DefaultTimeout, "Per-attempt UDP response timeout")
	rootCmd.PersistentFlags().Int("retries", client.DefaultRetries, "UDP resends after a timeout")
	rootCmd.PersistentFlags().Int("packet-max-size", 0, "Largest datagram accepted from the tracker (0: no limit)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(peersCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
