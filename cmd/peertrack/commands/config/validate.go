package config

import (
	"fmt"
	"strconv"

	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the peertrack configuration file.

Checks for syntax errors, missing required fields, invalid values and
packet sizes too small to carry a single record.

Examples:
  # Validate default config
  peertrack config validate

  # Validate specific config file
  peertrack config validate --config /etc/peertrack/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	tcfg, err := cfg.Server.Tracker().Normalize()
	if err != nil {
		return err
	}

	var warnings []string
	if !cfg.API.IsEnabled() && cfg.Metrics.Enabled {
		warnings = append(warnings, "metrics are enabled but the API server that exposes them is disabled")
	}
	if cfg.Catalog.Path == "" && len(cfg.Catalog.Files) == 0 {
		warnings = append(warnings, "catalog is empty - clients will see no files")
	}
	if tcfg.MaxFilesPerMessage == 1 && cfg.Server.PacketMaxSize < 2*wire.FileRecordSize {
		warnings = append(warnings, "packet_max_size fits one file per chunk - listing large catalogs takes one round trip per file")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	apiSummary := "disabled"
	if cfg.API.IsEnabled() {
		apiSummary = fmt.Sprintf("%d/tcp", cfg.API.Port)
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	if err := output.SimpleTable(out, [][2]string{
		{"Tracker port", fmt.Sprintf("%d/udp", cfg.Server.Port)},
		{"Packet max size", strconv.Itoa(cfg.Server.PacketMaxSize)},
		{"Files per chunk", strconv.Itoa(tcfg.MaxFilesPerMessage)},
		{"Peers per chunk", strconv.Itoa(tcfg.MaxPeersPerMessage)},
		{"Directory type", cfg.Directory.Type},
		{"API", apiSummary},
		{"Log level", cfg.Logging.Level},
	}); err != nil {
		return err
	}

	return nil
}
