package monitor

import (
	"time"

	"github.com/bioboy/slowkicker/internal/glftpd"
	"github.com/bioboy/slowkicker/internal/history"
	"github.com/bioboy/slowkicker/internal/policy"
)

// Evaluator decides whether an upload is slow enough to be kicked
type Evaluator struct {
	table   *policy.Table
	history *history.History
	now     func() time.Time
}

// NewEvaluator creates a new evaluator
func NewEvaluator(table *policy.Table, h *history.History) *Evaluator {
	return &Evaluator{
		table:   table,
		history: h,
		now:     time.Now,
	}
}

// Evaluate checks the upload of s to path against the first matching directory rule
func (e *Evaluator) Evaluate(s glftpd.Session, path string) KickOutcome {
	rule, ok := e.table.Match(path)
	if !ok {
		return KickOutcome{}
	}

	duration := e.now().Sub(s.TransferStart).Seconds()
	speed := TransferSpeed(s.BytesTransferred, duration)

	outcome := KickOutcome{
		Matched:  true,
		Rule:     rule,
		Speed:    speed,
		Duration: duration,
	}

	if duration < float64(rule.MinDuration) || speed >= rule.MinSpeed {
		return outcome
	}

	outcome.PriorKicks = e.history.Count(s.Username, path)
	if outcome.PriorKicks >= rule.MaxKicks {
		return outcome
	}

	outcome.Kick = true
	return outcome
}

// TransferSpeed returns the average speed in kB/s. A transfer that has not
// been running for any measurable time reports its byte count instead of a rate.
func TransferSpeed(bytes uint64, seconds float64) float64 {
	if seconds == 0 {
		return float64(bytes) / 1024
	}
	return float64(bytes) / seconds / 1024
}
