package monitor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

// timestampLayout matches C's "%a %b %e %T %Y", the format glftpd uses in its logs
const timestampLayout = "Mon Jan _2 15:04:05 2006"

// FormatTimestamp formats t the way glftpd log lines are stamped
func FormatTimestamp(t time.Time) string {
	return t.Local().Format(timestampLayout)
}

// FormatServerLine renders a kick for glftpd.log. With detailed unset every
// kick uses the single SLOWKICK format, which carries no group.
func FormatServerLine(event KickEvent, detailed bool) string {
	ts := FormatTimestamp(event.Timestamp)
	if !detailed {
		return fmt.Sprintf("%s SLOWKICK: \"%s\" \"%s\" \"%.0f\"", ts, event.Path, event.Username, event.Speed)
	}

	switch event.Category {
	case CategoryZeroByte:
		return fmt.Sprintf("%s ZEROBYTE: \"%s\" \"%s\" \"%s\"", ts, event.Path, event.Username, event.Group)
	case CategoryStalled:
		return fmt.Sprintf("%s STALLED: \"%s\" \"%s\" \"%s\"", ts, event.Path, event.Username, event.Group)
	default:
		return fmt.Sprintf("%s SLOW: \"%s\" \"%s\" \"%s\" \"%.0f\"", ts, event.Path, event.Username, event.Group, event.Speed)
	}
}

// SessionView is one row of the sessions report
type SessionView struct {
	Session   glftpd.Session `json:"session"`
	Uploading bool           `json:"uploading"`
	Path      string         `json:"path,omitempty"`
	Error     string         `json:"error,omitempty"`
	Outcome   *KickOutcome   `json:"outcome,omitempty"`
}

// FormatSessions formats the sessions report as human-readable text
func FormatSessions(snapshot Snapshot, views []SessionView) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Timestamp: %s\n", snapshot.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Sessions:  %d\n", len(snapshot.Sessions))
	sb.WriteString(strings.Repeat("━", 70) + "\n")

	uploads := 0
	for _, v := range views {
		if !v.Uploading {
			continue
		}
		uploads++

		fmt.Fprintf(&sb, "  %-12s pid %-7d %s\n", v.Session.Username, v.Session.PID, v.Path)
		switch {
		case v.Error != "":
			fmt.Fprintf(&sb, "               error: %s\n", v.Error)
		case v.Outcome == nil || !v.Outcome.Matched:
			sb.WriteString("               no rule\n")
		default:
			o := v.Outcome
			verdict := "ok"
			if o.Kick {
				verdict = "KICK"
			}
			fmt.Fprintf(&sb, "               %.0fkB/s over %.0fs (rule %s: %.0fkB/s after %ds, %d/%d kicks) %s\n",
				o.Speed, o.Duration, o.Rule.Mask, o.Rule.MinSpeed, o.Rule.MinDuration,
				o.PriorKicks, o.Rule.MaxKicks, verdict)
		}
	}

	if uploads == 0 {
		sb.WriteString("  No uploads in progress\n")
	}

	return sb.String()
}

// FormatSessionsJSON formats the sessions report as JSON
func FormatSessionsJSON(views []SessionView) (string, error) {
	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatKicks formats journal entries, one per line
func FormatKicks(events []KickEvent) string {
	var sb strings.Builder
	for _, e := range events {
		fmt.Fprintf(&sb, "%s  %-9s %-12s %-10s %6.0fkB/s  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Category, e.Username, e.Group, e.Speed, e.Path)
	}
	return sb.String()
}
