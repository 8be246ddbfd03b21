package runner

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
)

func TestRunDryRunSkipsExecution(t *testing.T) {
	r := New(true)

	// A command that would fail loudly if actually executed.
	if err := r.Run(context.Background(), "definitely-not-a-real-binary", "--flag"); err != nil {
		t.Fatalf("dry run should not execute, got error: %v", err)
	}
}

func TestRunDryRunLogsSingleLinePerCommand(t *testing.T) {
	var buf bytes.Buffer
	plog.SetOutput(&buf)
	plog.SetLevel(plog.LevelNotice)
	r := New(true)

	if err := r.Run(context.Background(), "rsync", "-ah", "/src", "/dst"); err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("dry run logged %d lines, want 1:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "[DRY RUN]") {
		t.Errorf("dry run line = %q, want the [DRY RUN] marker", lines[0])
	}
}

func TestRunReturnsCommandError(t *testing.T) {
	r := New(false)

	err := r.Run(context.Background(), "definitely-not-a-real-binary")
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *CommandError, got %T: %v", err, err)
	}
	if !strings.Contains(cmdErr.Command, "definitely-not-a-real-binary") {
		t.Errorf("CommandError.Command = %q, want the failing command line", cmdErr.Command)
	}
}

func TestOutputCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test relies on a unix echo binary")
	}
	r := New(true) // Output executes even in dry-run mode.

	out, err := r.Output(context.Background(), "echo", "hello")
	if err != nil {
		t.Fatalf("Output returned error: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("Output = %q, want %q", out, "hello")
	}
}
