package config

import (
	"github.com/marmos91/peertrack/internal/cli/output"
	"github.com/marmos91/peertrack/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective peertrack configuration: the file merged with
defaults and PEERTRACK_* environment overrides.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show the effective config as YAML
  peertrack config show

  # Show as JSON
  peertrack config show --output json

  # Show specific config file
  peertrack config show --config /etc/peertrack/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
