package monitor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

// Enforcement steps, used to label failures
const (
	StepSignal = "signal"
	StepStat   = "stat"
	StepDelete = "delete"
)

// ErrFileGone is returned when the upload's file disappeared before it could be deleted
var ErrFileGone = errors.New("file already gone")

// StepError reports the enforcement step that aborted a kick
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepError) Unwrap() error { return e.Err }

// IsExpectedAbsence reports whether err only says that something already
// went away on its own. Such errors are not logged.
func IsExpectedAbsence(err error) bool {
	return errors.Is(err, ErrPathGone) || errors.Is(err, ErrProcessGone) || errors.Is(err, ErrFileGone)
}

// Undupe removes a file from glftpd's dupe database
type Undupe interface {
	Run(ctx context.Context, username, filename string) error
}

// GroupResolver maps a numeric group id to its name
type GroupResolver interface {
	GroupName(gid int32) string
}

// EnforcerConfig configures an Enforcer. Undupe, Groups and Journal are optional.
type EnforcerConfig struct {
	Root       string
	Signaller  Signaller
	Undupe     Undupe
	Groups     GroupResolver
	Categories bool // classify zero byte and stalled uploads separately
	ServerLog  *ServerLog
	Journal    *Journal
	Logger     Logger
}

// Enforcer kicks slow uploads: terminate the process, delete the partial
// file, clean the dupe database and record the kick.
type Enforcer struct {
	config EnforcerConfig
	now    func() time.Time
}

// NewEnforcer creates a new enforcer
func NewEnforcer(cfg EnforcerConfig) *Enforcer {
	if cfg.Signaller == nil {
		cfg.Signaller = ProcessSignaller{}
	}
	return &Enforcer{config: cfg, now: time.Now}
}

// Enforce kicks the upload of s to path. Every step must succeed for the
// next one to run; nothing is rolled back when a later step fails.
func (e *Enforcer) Enforce(ctx context.Context, s glftpd.Session, path string, outcome KickOutcome) (*KickEvent, error) {
	if err := e.config.Signaller.Terminate(s.PID); err != nil {
		return nil, &StepError{Step: StepSignal, Err: err}
	}

	realPath := e.config.Root + path

	var size int64
	info, err := os.Stat(realPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &StepError{Step: StepStat, Err: fmt.Errorf("unable to stat path: %s: %w", realPath, err)}
		}
		// Nothing was stat'ed, so the owner is unknown (0).
		if !ownerMatchesProcess(0, s.PID) {
			return nil, &StepError{Step: StepStat, Err: ErrFileGone}
		}
	} else {
		size = info.Size()
	}

	if err := os.Remove(realPath); err != nil {
		return nil, &StepError{Step: StepDelete, Err: fmt.Errorf("unable to delete file: %s: %w", realPath, err)}
	}

	e.undupe(ctx, s.Username, path)

	event := KickEvent{
		ID:        uuid.New().String(),
		Timestamp: e.now(),
		Username:  s.Username,
		Group:     e.groupName(s.GroupID),
		Path:      path,
		PID:       s.PID,
		Speed:     outcome.Speed,
		Duration:  outcome.Duration,
		Size:      size,
		Category:  Classify(size, outcome.Speed, e.config.Categories),
	}

	e.logf("Kicked user for %s: %s: %.0fkB/s: %s", event.Category.Reason(), event.Username, event.Speed, event.Path)

	if e.config.ServerLog != nil {
		if err := e.config.ServerLog.WriteKick(event); err != nil {
			e.logf("%v", err)
		}
	}
	if e.config.Journal != nil {
		if err := e.config.Journal.WriteKick(event); err != nil {
			e.logf("%v", err)
		}
	}

	return &event, nil
}

// Classify picks the audit category of a kick. Without categories every
// kick is reported as slow.
func Classify(size int64, speed float64, categories bool) Category {
	switch {
	case !categories:
		return CategorySlow
	case size == 0:
		return CategoryZeroByte
	case speed == 0:
		return CategoryStalled
	default:
		return CategorySlow
	}
}

// ownerMatchesProcess guards deletion when the upload's file could not be
// stat'ed. It compares a file owner id with a process id, which are
// unrelated numbers, so for a live session it always fails the kick.
// Kept as is until the intended ownership check is confirmed.
func ownerMatchesProcess(owner uint32, pid int) bool {
	return int64(owner) == int64(pid)
}

func (e *Enforcer) undupe(ctx context.Context, username, path string) {
	if e.config.Undupe == nil {
		return
	}

	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		e.logf("Undupe failed, malformed path: %s: %s", username, path)
		return
	}

	if err := e.config.Undupe.Run(ctx, username, path[i+1:]); err != nil {
		e.logf("Undupe failed: %s: %s: %v", username, path, err)
	}
}

func (e *Enforcer) groupName(gid int32) string {
	if e.config.Groups == nil {
		return glftpd.DefaultGroupName
	}
	return e.config.Groups.GroupName(gid)
}

func (e *Enforcer) logf(format string, args ...any) {
	if e.config.Logger != nil {
		e.config.Logger.Printf(format, args...)
	}
}
