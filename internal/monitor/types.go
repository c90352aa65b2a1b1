package monitor

import (
	"time"

	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/history"
	"github.com/bioboy/slowkicker/internal/metrics"
	"github.com/bioboy/slowkicker/internal/policy"
)

// Category classifies a kick for the audit logs
type Category string

const (
	CategorySlow     Category = "slow"
	CategoryZeroByte Category = "zerobyte"
	CategoryStalled  Category = "stalled"
)

// Reason returns the wording used in the daemon log
func (c Category) Reason() string {
	switch c {
	case CategoryZeroByte:
		return "zero byte"
	case CategoryStalled:
		return "stalling upload"
	default:
		return "slow uploading"
	}
}

// Logger receives operational messages. Both *log.Logger and *DaemonLog satisfy it.
type Logger interface {
	Printf(format string, args ...any)
}

// Snapshot is one sampling of the online users table
type Snapshot struct {
	Timestamp time.Time        `json:"timestamp"`
	Sessions  []glftpd.Session `json:"sessions"`
}

// KickOutcome is the evaluator's verdict for one upload
type KickOutcome struct {
	Kick       bool                 `json:"kick"`
	Matched    bool                 `json:"matched"`
	Rule       policy.DirectoryRule `json:"rule"`
	Speed      float64              `json:"speed_kbps"`
	Duration   float64              `json:"duration_seconds"`
	PriorKicks int                  `json:"prior_kicks"`
}

// KickEvent records a completed kick
type KickEvent struct {
	ID        string    `json:"id"` // Unique event ID
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Group     string    `json:"group"`
	Path      string    `json:"path"`
	PID       int       `json:"pid"`
	Speed     float64   `json:"speed_kbps"`
	Duration  float64   `json:"duration_seconds"`
	Size      int64     `json:"size"`
	Category  Category  `json:"category"`
}

// PassStats summarizes one pass over the online users table
type PassStats struct {
	Timestamp  time.Time     `json:"timestamp"`
	Sampled    int           `json:"sampled"`
	Uploads    int           `json:"uploads"`
	Violations int           `json:"violations"`
	Kicks      int           `json:"kicks"`
	Failures   int           `json:"failures"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// DaemonConfig configures the polling loop
type DaemonConfig struct {
	PollInterval time.Duration
	DryRun       bool // evaluate and log, never enforce

	Collector *Collector
	Evaluator *Evaluator
	Enforcer  *Enforcer
	History   *history.History
	Metrics   *metrics.Reporter // optional
	Logger    Logger

	// Callbacks
	OnPass  func(PassStats)
	OnKick  func(KickEvent)
	OnError func(error)
}
