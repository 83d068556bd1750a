package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/marmos91/peertrack/cmd/peertrack/cmdutil"
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/marmos91/peertrack/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracker status",
	Long: `Display the status of a running tracker through its admin API.

This command checks the health and readiness endpoints and displays
status, uptime and directory counts.

Examples:
  # Check the local tracker
  peertrack status

  # Output as JSON
  peertrack status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// TrackerStatus represents the tracker status for display.
type TrackerStatus struct {
	API       string `json:"api" yaml:"api"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Ready     bool   `json:"ready" yaml:"ready"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Backend   string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Files     int    `json:"files" yaml:"files"`
	Peers     int    `json:"peers" yaml:"peers"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	api := cmdutil.APIClient()
	status := TrackerStatus{
		API:    api.BaseURL(),
		Status: "unreachable",
	}

	health, err := api.Health(cmd.Context())
	if err != nil {
		status.Error = err.Error()
	} else {
		status.Status = health.Status
		status.Healthy = health.Status == "healthy"
		status.Service = health.Data.Service
		status.StartedAt = health.Data.StartedAt
		status.Uptime = timeutil.FormatUptime(time.Duration(health.Data.UptimeSec) * time.Second)

		ready, err := api.Ready(cmd.Context())
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Ready = true
			status.Backend = ready.Backend
			status.Files = ready.Files
			status.Peers = ready.Peers
		}
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(status)
	}

	return printStatusTable(printer, status)
}

func printStatusTable(p *output.Printer, status TrackerStatus) error {
	p.Println()
	p.Println("peertrack Tracker Status")
	p.Println("========================")
	p.Println()
	p.Printf("  API:        %s\n", status.API)
	printStatusLine(p.Writer(), p.ColorEnabled(), status)

	if status.Service != "" {
		p.Printf("  Service:    %s\n", status.Service)
	}
	if status.StartedAt != "" {
		started, err := time.Parse(time.RFC3339, status.StartedAt)
		if err == nil {
			p.Printf("  Started:    %s\n", timeutil.FormatTime(started))
		}
	}
	if status.Uptime != "" {
		p.Printf("  Uptime:     %s\n", status.Uptime)
	}
	if status.Error != "" {
		p.Error("  Error:      " + status.Error)
	}
	p.Println()

	if status.Ready {
		dir := output.NewTableData("Backend", "Files", "Peers")
		dir.AddRow(status.Backend, strconv.Itoa(status.Files), strconv.Itoa(status.Peers))
		if err := output.PrintTable(p.Writer(), dir); err != nil {
			return err
		}
		p.Println()
	}
	return nil
}

func printStatusLine(w io.Writer, color bool, status TrackerStatus) {
	symbol, code := "●", "33"
	switch {
	case status.Healthy && status.Ready:
		code = "32"
	case status.Status == "unreachable":
		symbol, code = "○", "31"
	}

	if !color {
		_, _ = fmt.Fprintf(w, "  Status:     %s %s\n", symbol, status.Status)
		return
	}
	_, _ = fmt.Fprintf(w, "  Status:     \033[%sm%s %s\033[0m\n", code, symbol, status.Status)
}
