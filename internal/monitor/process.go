package monitor

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

const uploadVerb = "STOR "

// ErrProcessGone is returned when the session's process exited before it could be signalled
var ErrProcessGone = errors.New("process already gone")

// Signaller probes and terminates session processes
type Signaller interface {
	Alive(pid int) bool
	Terminate(pid int) error
}

// ProcessSignaller signals processes with kill(2)
type ProcessSignaller struct{}

// Alive reports whether a zero signal can be delivered to pid
func (ProcessSignaller) Alive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// Terminate sends SIGTERM to pid
func (ProcessSignaller) Terminate(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return fmt.Errorf("unable to kill process: %d: %w", pid, err)
	}
	return nil
}

// IsUploadStatus reports whether a glftpd status string denotes an inbound transfer
func IsUploadStatus(status string) bool {
	return len(status) >= len(uploadVerb) && strings.EqualFold(status[:len(uploadVerb)], uploadVerb)
}

// IsUploading reports whether s is a live upload. The liveness probe is
// racy: the process may exit right after it succeeds.
func IsUploading(s glftpd.Session, sig Signaller) bool {
	return s.PID != 0 && IsUploadStatus(s.Status) && sig.Alive(s.PID)
}
