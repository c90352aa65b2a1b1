package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/config"
)

// Version is the current version of slowkicker (injected via ldflags at build time)
var Version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded config
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "slowkicker",
	Short: "Kick slow uploads from a glftpd site",
	Long: `slowkicker watches glftpd's online users table and kicks uploads that stay
below a per-directory minimum speed for too long. The partial file is deleted,
removed from the dupe database and the kick is reported in glftpd.log.

By default runs the watchdog in the foreground (same as 'slowkicker run').

Examples:
  slowkicker                         # Run the watchdog
  slowkicker check --dry-run         # One pass, report what would be kicked
  slowkicker sessions                # Show uploads in progress and their verdict
  slowkicker kicks --limit 20        # Last 20 kicks from the journal
  slowkicker config example /glftpd/etc/slowkicker.toml
`,
	Version:      Version,
	SilenceUsage: true,
	// When called without subcommand, run the watchdog
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCmd.RunE(cmd, args)
	},
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides only if explicitly set
	if cmd.Flags().Changed("verbose") {
		cfg.Daemon.Verbose = verbose
	}

	return nil
}

// skipConfig replaces loadConfig for commands that must work without a valid config
func skipConfig(cmd *cobra.Command, args []string) error {
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (must exist when given)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror the daemon log on stderr")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(kicksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print version information",
	PersistentPreRunE: skipConfig,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slowkicker v%s\n", Version)
	},
}
