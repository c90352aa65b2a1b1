package health

import (
	"fmt"
	"strings"
)

// Status is the outcome of a single health check
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// HealthCheck is the result of one check
type HealthCheck struct {
	Name    string                 `json:"name"`
	Status  Status                 `json:"status"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Report collects the results of all checks
type Report struct {
	Status Status        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

// NewReport summarizes checks. The worst check status wins.
func NewReport(checks []HealthCheck) Report {
	status := StatusOK
	for _, c := range checks {
		switch c.Status {
		case StatusFailed:
			status = StatusFailed
		case StatusWarning:
			if status == StatusOK {
				status = StatusWarning
			}
		}
	}
	return Report{Status: status, Checks: checks}
}

// Format renders the report as human-readable text
func (r Report) Format() string {
	var sb strings.Builder
	for _, c := range r.Checks {
		fmt.Fprintf(&sb, "  %-4s %-14s %s\n", statusMark(c.Status), c.Name, c.Message)
	}
	fmt.Fprintf(&sb, "\nStatus: %s\n", r.Status)
	return sb.String()
}

func statusMark(s Status) string {
	switch s {
	case StatusOK:
		return "[ok]"
	case StatusWarning:
		return "[!!]"
	default:
		return "[xx]"
	}
}
