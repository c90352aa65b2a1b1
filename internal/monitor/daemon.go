package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Daemon runs the sampling and enforcement loop
type Daemon struct {
	config DaemonConfig
}

// NewDaemon creates a daemon from fully built components
func NewDaemon(cfg DaemonConfig) *Daemon {
	return &Daemon{config: cfg}
}

// Run performs a pass, sleeps PollInterval and repeats until ctx is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// select picks at random when both cases are ready
			if ctx.Err() != nil {
				return nil
			}
			d.Check(ctx)
			timer.Reset(d.config.PollInterval)

		case <-ctx.Done():
			return nil
		}
	}
}

// Check performs one pass over the online users table. Sessions are handled
// in table order and a failure on one session never stops the others.
func (d *Daemon) Check(ctx context.Context) PassStats {
	start := time.Now()
	stats := PassStats{Timestamp: start}

	snapshot, err := d.config.Collector.Collect(ctx)
	if err != nil {
		stats.Err = err
		d.logf("%v", err)
		d.reportError(err)
		if d.config.Metrics != nil {
			d.config.Metrics.PassFailed()
		}
		d.finish(&stats, start)
		return stats
	}
	stats.Sampled = len(snapshot.Sessions)

	for _, s := range snapshot.Sessions {
		if ctx.Err() != nil {
			break
		}

		if !d.config.Collector.IsUploading(s) {
			continue
		}
		stats.Uploads++

		path, err := d.config.Collector.ResolvePath(s)
		if err != nil {
			if !IsExpectedAbsence(err) {
				if errors.Is(err, ErrMalformedStatus) {
					d.logf("Malformed status: %s", s.Status)
				} else {
					d.logf("%v", err)
				}
			}
			continue
		}

		outcome := d.config.Evaluator.Evaluate(s, path)
		if !outcome.Kick {
			continue
		}
		stats.Violations++

		if d.config.DryRun {
			d.logf("Would kick user: %s: %.0fkB/s after %.0fs: %s", s.Username, outcome.Speed, outcome.Duration, path)
			continue
		}

		event, err := d.config.Enforcer.Enforce(ctx, s, path, outcome)
		if err != nil {
			stats.Failures++
			d.kickFailed(err)
			continue
		}

		d.config.History.Increment(s.Username, path)
		stats.Kicks++

		if d.config.Metrics != nil {
			d.config.Metrics.Kicked(string(event.Category))
		}
		if d.config.OnKick != nil {
			d.config.OnKick(*event)
		}
	}

	d.finish(&stats, start)
	return stats
}

func (d *Daemon) finish(stats *PassStats, start time.Time) {
	stats.Duration = time.Since(start)

	if d.config.Metrics != nil && stats.Err == nil {
		d.config.Metrics.ObservePass(stats.Sampled, stats.Uploads, d.config.History.Len(), stats.Duration)
	}
	if d.config.OnPass != nil {
		d.config.OnPass(*stats)
	}
}

func (d *Daemon) kickFailed(err error) {
	var stepErr *StepError
	if errors.As(err, &stepErr) && d.config.Metrics != nil {
		d.config.Metrics.KickFailed(stepErr.Step)
	}

	if IsExpectedAbsence(err) {
		return
	}

	if stepErr != nil {
		err = stepErr.Err
	}
	d.logf("%v", err)
	d.reportError(fmt.Errorf("kick failed: %w", err))
}

func (d *Daemon) reportError(err error) {
	if d.config.OnError != nil {
		d.config.OnError(err)
	}
}

func (d *Daemon) logf(format string, args ...any) {
	if d.config.Logger != nil {
		d.config.Logger.Printf(format, args...)
	}
}
