package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"github.com/bioboy/slowkicker/internal/lock"
	"github.com/bioboy/slowkicker/internal/monitor"
)

var checkDryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the watchdog in the foreground",
	Long: `Run the watchdog in the foreground until SIGINT or SIGTERM.

Only one instance may run per glftpd installation; the lock file in
glftpd's tmp directory guards it. Under systemd (Type=notify) readiness,
watchdog keep-alives and shutdown are reported with sd_notify.

Examples:
  slowkicker run
  slowkicker run --config /glftpd/etc/slowkicker.toml --verbose`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Perform a single pass over the online users table",
	Long: `Perform a single sampling and enforcement pass, then exit.

With --dry-run nothing is kicked: every upload that would be kicked is
reported on stderr instead.

Examples:
  slowkicker check
  slowkicker check --dry-run`,
	Args: cobra.NoArgs,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().BoolVar(&checkDryRun, "dry-run", false, "Report violations without kicking")
}

func runCommand(cmd *cobra.Command, args []string) error {
	fileLock, err := lock.Acquire(cfg.Glftpd.LockFile)
	if err != nil {
		return err
	}
	defer fileLock.Release()

	w, err := newWatchdog(cfg, false)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		w.metrics.Serve(ctx, cfg.Metrics.Listen)
	}

	w.config.OnPass = func(monitor.PassStats) {
		notify(daemon.SdNotifyWatchdog)
	}

	fmt.Fprintf(os.Stderr, "Watching %s with %d directory rule(s), polling every %s\n",
		cfg.Glftpd.Root, len(cfg.Directories), cfg.PollIntervalDuration())
	notify(daemon.SdNotifyReady)

	err = w.daemon().Run(ctx)

	notify(daemon.SdNotifyStopping)
	fmt.Fprintf(os.Stderr, "Shutting down\n")
	return err
}

func checkCommand(cmd *cobra.Command, args []string) error {
	fileLock, err := lock.Acquire(cfg.Glftpd.LockFile)
	if err != nil {
		return err
	}
	defer fileLock.Release()

	w, err := newWatchdog(cfg, checkDryRun)
	if err != nil {
		return err
	}
	defer w.Close()

	stats := w.daemon().Check(cmd.Context())
	if stats.Err != nil {
		return stats.Err
	}

	if checkDryRun {
		fmt.Printf("Sessions: %d  Uploads: %d  Would kick: %d  (%s)\n",
			stats.Sampled, stats.Uploads, stats.Violations, stats.Duration)
		return nil
	}

	fmt.Printf("Sessions: %d  Uploads: %d  Kicked: %d  Failed: %d  (%s)\n",
		stats.Sampled, stats.Uploads, stats.Kicks, stats.Failures, stats.Duration)

	return nil
}

// notify reports state to systemd. Outside systemd it is a no-op.
func notify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil && cfg.Daemon.Verbose {
		log.Printf("[systemd] notify %s failed: %v", state, err)
	}
}
