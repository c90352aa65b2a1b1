package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration",
}

var configExampleCmd = &cobra.Command{
	Use:   "example <path>",
	Short: "Write a commented example config file",
	Long: `Write a commented example config file holding the built-in defaults.

Examples:
  slowkicker config example /glftpd/etc/slowkicker.toml`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteExample(args[0]); err != nil {
			return fmt.Errorf("failed to write example config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote example config to %s\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, config files and
SLOWKICKER_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Encode(os.Stdout, cfg)
	},
}

func init() {
	configCmd.AddCommand(configExampleCmd)
	configCmd.AddCommand(configShowCmd)
}
