package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/bioboy/slowkicker/internal/config"
	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/history"
	"github.com/bioboy/slowkicker/internal/metrics"
	"github.com/bioboy/slowkicker/internal/monitor"
	"github.com/bioboy/slowkicker/internal/policy"
	"github.com/bioboy/slowkicker/internal/undupe"
)

// watchdog holds the sampling and enforcement pipeline built from a config
type watchdog struct {
	config    monitor.DaemonConfig
	collector *monitor.Collector
	evaluator *monitor.Evaluator
	history   *history.History
	metrics   *metrics.Reporter
	journal   *monitor.Journal
}

// newWatchdog wires every component the daemon needs. A dry run logs to
// stderr instead of the daemon log and never opens the kick journal.
func newWatchdog(cfg *config.Config, dryRun bool) (*watchdog, error) {
	table, err := policy.NewTable(cfg.Directories)
	if err != nil {
		return nil, fmt.Errorf("invalid directories: %w", err)
	}

	h, err := history.New(cfg.Daemon.HistorySize)
	if err != nil {
		return nil, err
	}
	if cfg.Daemon.Verbose {
		h.SetOnEvict(func(r history.Record) {
			log.Printf("[history] forgot %s: %s after %d kick(s)", r.Username, r.Path, r.KickCount)
		})
	}

	var logger monitor.Logger
	if dryRun {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	} else {
		logger = monitor.NewDaemonLog(cfg.Glftpd.DaemonLog, cfg.Daemon.Verbose)
	}

	signaller := monitor.ProcessSignaller{}
	enforcerCfg := monitor.EnforcerConfig{
		Root:       cfg.Glftpd.Root,
		Signaller:  signaller,
		Categories: cfg.Audit.Categories,
		// Without group names only the SLOWKICK format can be written
		ServerLog: monitor.NewServerLog(cfg.Glftpd.ServerLog, cfg.Audit.Categories && cfg.Audit.GroupLookup),
		Logger:    logger,
	}
	if cfg.Audit.GroupLookup {
		enforcerCfg.Groups = glftpd.NewGroupFile(cfg.Glftpd.GroupFile, cfg.GroupCacheTTL())
	}
	if cfg.Undupe.Enabled {
		enforcerCfg.Undupe = undupe.NewRunner(cfg.Undupe.Binary, cfg.UndupeTimeout())
	}

	w := &watchdog{
		history: h,
		metrics: metrics.NewReporter(),
	}

	if cfg.Audit.JournalPath != "" && !dryRun {
		w.journal, err = monitor.NewJournal(cfg.Audit.JournalPath)
		if err != nil {
			return nil, err
		}
		enforcerCfg.Journal = w.journal
	}

	w.collector = monitor.NewCollector(glftpd.NewSharedMemory(cfg.Glftpd.IPCKey), signaller, cfg.Glftpd.Root)
	w.evaluator = monitor.NewEvaluator(table, h)
	w.config = monitor.DaemonConfig{
		PollInterval: cfg.PollIntervalDuration(),
		DryRun:       dryRun,
		Collector:    w.collector,
		Evaluator:    w.evaluator,
		Enforcer:     monitor.NewEnforcer(enforcerCfg),
		History:      h,
		Metrics:      w.metrics,
		Logger:       logger,
	}

	return w, nil
}

// daemon creates the polling loop with the callbacks set so far
func (w *watchdog) daemon() *monitor.Daemon {
	return monitor.NewDaemon(w.config)
}

// Close releases the kick journal
func (w *watchdog) Close() error {
	if w.journal != nil {
		return w.journal.Close()
	}
	return nil
}
