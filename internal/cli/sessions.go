package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/monitor"
)

var sessionsJSON bool

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Output in JSON format")
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show uploads in progress and how the rules judge them",
	Long: `Show the uploads currently in glftpd's online users table with the
resolved file path, the matching directory rule, the average speed and the
verdict. Nothing is kicked and the kick history of a running daemon is not
visible here, so prior kicks always read 0.

Examples:
  slowkicker sessions
  slowkicker sessions --json`,
	Args: cobra.NoArgs,
	RunE: sessionsCommand,
}

func sessionsCommand(cmd *cobra.Command, args []string) error {
	w, err := newWatchdog(cfg, true)
	if err != nil {
		return err
	}
	defer w.Close()

	snapshot, err := w.collector.Collect(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to sample sessions: %w", err)
	}

	views := inspectSessions(w, snapshot)

	if sessionsJSON {
		out, err := monitor.FormatSessionsJSON(views)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(out)
		return nil
	}

	fmt.Print(monitor.FormatSessions(snapshot, views))
	return nil
}

// inspectSessions runs every session through the same checks as a pass,
// without enforcing anything
func inspectSessions(w *watchdog, snapshot monitor.Snapshot) []monitor.SessionView {
	views := make([]monitor.SessionView, 0, len(snapshot.Sessions))
	for _, s := range snapshot.Sessions {
		view := monitor.SessionView{Session: s, Uploading: w.collector.IsUploading(s)}
		if view.Uploading {
			path, err := w.collector.ResolvePath(s)
			if err != nil {
				view.Error = err.Error()
			} else {
				outcome := w.evaluator.Evaluate(s, path)
				view.Path = path
				view.Outcome = &outcome
			}
		}
		views = append(views, view)
	}
	return views
}
