// Package undupe runs glftpd's undupe tool so the dupe database forgets a
// file that was removed behind glftpd's back.
package undupe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultTimeout bounds a single undupe invocation.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the tool did not finish within the timeout.
var ErrTimeout = errors.New("undupe timed out")

// Runner invokes the undupe binary as `<binary> -u <user> -f <file>`.
type Runner struct {
	Binary  string
	Timeout time.Duration
}

// NewRunner creates a runner for binary. A zero timeout selects DefaultTimeout.
func NewRunner(binary string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Binary: binary, Timeout: timeout}
}

// Run removes filename uploaded by username from the dupe database.
// Output is discarded and the exit status is ignored; only failures to
// start the tool or a timeout are reported.
func (r *Runner) Run(ctx context.Context, username, filename string) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Binary, "-u", username, "-f", filename)
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s: %s", ErrTimeout, r.Timeout, filename)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to run %s: %w", r.Binary, err)
	}
	return nil
}
