package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/monitor"
)

var kicksLimit int

func init() {
	kicksCmd.Flags().IntVar(&kicksLimit, "limit", 50, "Show only the last N kicks (0 = all)")
}

var kicksCmd = &cobra.Command{
	Use:   "kicks",
	Short: "Show recorded kicks from the kick journal",
	Long: `Show kicks recorded in the JSON Lines kick journal (audit.journal_path),
oldest first.

Examples:
  slowkicker kicks
  slowkicker kicks --limit 0`,
	Args: cobra.NoArgs,
	RunE: kicksCommand,
}

func kicksCommand(cmd *cobra.Command, args []string) error {
	if cfg.Audit.JournalPath == "" {
		return fmt.Errorf("no kick journal configured (set audit.journal_path)")
	}

	events, err := monitor.ReadJournal(cfg.Audit.JournalPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Println("No kicks recorded")
			return nil
		}
		return err
	}

	events = lastKicks(events, kicksLimit)
	if len(events) == 0 {
		fmt.Println("No kicks recorded")
		return nil
	}

	fmt.Print(monitor.FormatKicks(events))
	return nil
}

// lastKicks returns the newest limit events; limit <= 0 keeps all of them
func lastKicks(events []monitor.KickEvent, limit int) []monitor.KickEvent {
	if limit <= 0 || len(events) <= limit {
		return events
	}
	return events[len(events)-limit:]
}
