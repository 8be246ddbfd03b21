// Package dbdump saves all MySQL databases into the current snapshot
// directory. The dump streams straight from mysqldump into the destination
// file, optionally through a gzip or zstd compressor, so the full dump is
// never held in memory.
package dbdump

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/runner"
	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// dumpBaseName is the dump file name inside the snapshot directory, before
// the compression extension.
const dumpBaseName = "mysqldump_all_database.sql"

// Dumper writes a full MySQL dump into a snapshot directory.
type Dumper struct {
	Compression Compression
	DryRun      bool
}

// New returns a Dumper with the given compression and dry-run behavior.
func New(compression Compression, dryRun bool) *Dumper {
	return &Dumper{Compression: compression, DryRun: dryRun}
}

// Dump runs mysqldump for all databases and writes the stream into
// snapshotDir. A non-zero exit is returned as a *runner.CommandError so the
// orchestrator treats it like any other external tool failure.
func (d *Dumper) Dump(ctx context.Context, snapshotDir string) error {
	dstPath := filepath.Join(snapshotDir, dumpBaseName+d.Compression.Ext())
	args := []string{"--all-databases", "-C"}
	display := "mysqldump " + strings.Join(args, " ")

	plog.Info("Dumping all MySQL databases", "target", dstPath)
	if d.DryRun {
		plog.Notice("[DRY RUN] Would execute command", "command", display, "target", dstPath)
		return nil
	}
	plog.Notice("EXEC", "command", display)

	if err := os.MkdirAll(snapshotDir, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create dump directory %s: %w", snapshotDir, err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create dump file %s: %w", dstPath, err)
	}
	defer dst.Close()

	cw, err := d.Compression.newWriter(dst)
	if err != nil {
		return fmt.Errorf("failed to create dump compressor: %w", err)
	}

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Stdout = cw
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		cw.Close()
		os.Remove(dstPath)
		return &runner.CommandError{Command: display, Err: err}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to flush dump compressor: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close dump file %s: %w", dstPath, err)
	}
	return nil
}
