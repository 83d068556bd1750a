// Package cmdutil provides shared utilities for peertrack client commands.
package cmdutil

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/marmos91/peertrack/pkg/apiclient"
	"github.com/marmos91/peertrack/pkg/client"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Defaults for the client flags. PEERTRACK_TRACKER and PEERTRACK_API override
// them when the flags are not given.
const (
	DefaultTracker = "127.0.0.1:9001"
	DefaultAPI     = "http://127.0.0.1:9090"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Tracker       string
	API           string
	Output        string
	NoColor       bool
	Verbose       bool
	Timeout       time.Duration
	Retries       int
	PacketMaxSize int
}

// EnvOr returns the environment variable key, or fallback when it is unset.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TrackerClient dials the UDP tracker named by --tracker.
func TrackerClient() (*client.Client, error) {
	opts := []client.Option{
		client.WithTimeout(Flags.Timeout),
		client.WithRetries(Flags.Retries),
	}
	if Flags.PacketMaxSize > 0 {
		opts = append(opts, client.WithPacketMaxSize(Flags.PacketMaxSize))
	}
	return client.Dial(Flags.Tracker, opts...)
}

// APIClient returns a client for the admin API named by --api.
func APIClient() *apiclient.Client {
	return apiclient.New(Flags.API)
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// Printer returns a printer for cmd's output honoring --output and
// --no-color. Color is only used on a stdout terminal.
func Printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	if out == io.Writer(os.Stdout) {
		return output.StdoutPrinter(format, !Flags.NoColor), nil
	}
	return output.NewPrinter(out, format, false), nil
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// IsInteractive reports whether stdin is a terminal, so prompts can run.
func IsInteractive() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// PrintInputs describes the request a command is about to make. It prints
// to stderr and only with --verbose, so piped output stays parseable.
func PrintInputs(cmd *cobra.Command, title string, pairs ...[2]string) {
	if !IsVerbose() {
		return
	}
	if Flags.NoColor {
		pterm.DisableColor()
	}

	w := cmd.ErrOrStderr()
	pterm.DefaultSection.WithWriter(w).Println(title)
	for _, kv := range pairs {
		pterm.DefaultBasicText.WithWriter(w).Printfln("  %-10s %s", kv[0]+":", kv[1])
	}
}

// TrackerInputs are the PrintInputs pairs shared by the UDP commands.
func TrackerInputs(extra ...[2]string) [][2]string {
	pairs := [][2]string{
		{"Tracker", Flags.Tracker},
		{"Timeout", Flags.Timeout.String()},
		{"Retries", strconv.Itoa(Flags.Retries)},
	}
	return append(pairs, extra...)
}
