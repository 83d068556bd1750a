package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/peertrack/internal/cli/prompt"
	"github.com/marmos91/peertrack/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file populated with the default settings.

An existing file is kept unless --force is given. On a terminal you are
asked before it is overwritten.

Examples:
  # Write $XDG_CONFIG_HOME/peertrack/config.yaml
  peertrack config init

  # Write to a custom path, replacing any existing file
  peertrack config init --config ./peertrack.yaml --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	force := initForce
	if _, err := os.Stat(configPath); err == nil && !force && isInteractive() {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", configPath), force)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			return errors.New("aborted: configuration file left unchanged")
		}
		force = true
	}

	if err := config.InitConfigToPath(configPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration written to %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintf(out, "  peertrack config edit --config %s\n", configPath)
	_, _ = fmt.Fprintf(out, "  peertrack start --config %s\n", configPath)
	return nil
}

func isInteractive() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
