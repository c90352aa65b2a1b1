package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/health"
)

var healthJSON bool

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that slowkicker can do its job on this host",
	Long: `Check the glftpd root, the online users table, the log directories, the
group file, the undupe binary, the lock file and the process privileges.

Exits non-zero when any check fails.

Examples:
  slowkicker health
  slowkicker health --json`,
	Args: cobra.NoArgs,
	RunE: healthCommand,
}

func healthCommand(cmd *cobra.Command, args []string) error {
	source := glftpd.NewSharedMemory(cfg.Glftpd.IPCKey)
	report := health.NewReport(health.RunAll(cmd.Context(), cfg, source))

	if healthJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(report.Format())
	}

	if report.Status == health.StatusFailed {
		return fmt.Errorf("health check failed")
	}
	return nil
}
