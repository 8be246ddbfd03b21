// Package runner executes the external tools the pipeline shells out to:
// rsync, mysqldump, 7z, zip and rclone. A runner is dry-run aware; in dry-run
// mode every invocation is replaced by an intent log so the surrounding
// planning logic still runs against real inputs.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
)

// CommandError wraps a non-zero exit or a failure to start an external tool.
// The orchestrator records it on its run-scoped error flag and continues
// best-effort; cleanup stages are skipped when the flag is set.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed: %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Runner invokes external processes. The zero value executes for real;
// set DryRun to log intent instead.
type Runner struct {
	DryRun bool
}

// New returns a Runner with the given dry-run behavior.
func New(dryRun bool) *Runner {
	return &Runner{DryRun: dryRun}
}

// Run executes a command, streaming its output to the process streams.
// External tools run to completion or failure; no timeout is imposed beyond
// the passed context. A non-zero exit is returned as a *CommandError.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	display := name + " " + strings.Join(args, " ")
	if r.DryRun {
		plog.Notice("[DRY RUN] Would execute command", "command", display)
		return nil
	}
	plog.Notice("EXEC", "command", display)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: display, Err: err}
	}
	return nil
}

// RunIn behaves like Run but executes the command with the given working
// directory. Archivers use it so archive entries are rooted at the snapshot
// name rather than its absolute path.
func (r *Runner) RunIn(ctx context.Context, dir, name string, args ...string) error {
	display := name + " " + strings.Join(args, " ")
	if r.DryRun {
		plog.Notice("[DRY RUN] Would execute command", "command", display, "dir", dir)
		return nil
	}
	plog.Notice("EXEC", "command", display, "dir", dir)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: display, Err: err}
	}
	return nil
}

// Output executes a command and captures stdout. Listing commands need their
// output even during a dry run, so Output always executes for real; it must
// only be used for read-only invocations.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	display := name + " " + strings.Join(args, " ")
	plog.Debug("EXEC (capture)", "command", display)

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{Command: display, Err: err}
	}
	return stdout.String(), nil
}
