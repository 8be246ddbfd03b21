// Package pathsync copies source paths into the current snapshot directory.
// For incremental runs a syncer receives the ordered comparison-base list
// (the latest full snapshot first, then its differential chain): files
// unchanged relative to any base are skipped, so the snapshot holds only
// what changed.
package pathsync

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/runner"
)

// Syncer copies one source path into a destination directory, honoring the
// comparison bases in order.
type Syncer interface {
	Sync(ctx context.Context, src, dst string, bases []string) error
}

// Options carries the tunables shared by the syncer implementations.
type Options struct {
	// ModTimeWindow is the window in which the native engine treats file
	// modification times as equal.
	ModTimeWindow time.Duration
}

// NewSyncer returns the syncer for the selected engine.
func NewSyncer(engine Engine, run *runner.Runner, opts Options) Syncer {
	switch engine {
	case Native:
		return &nativeSyncer{dryRun: run.DryRun, modTimeWindow: opts.ModTimeWindow}
	default:
		return &rsyncSyncer{run: run}
	}
}

// rsyncSyncer shells out to rsync. Each comparison base becomes a
// --compare-dest argument, in base order: rsync skips files that are
// unchanged relative to any of them.
type rsyncSyncer struct {
	run *runner.Runner
}

func (s *rsyncSyncer) Sync(ctx context.Context, src, dst string, bases []string) error {
	args := []string{"-ah"}
	for _, base := range bases {
		abs, err := filepath.Abs(base)
		if err != nil {
			abs = base
		}
		args = append(args, "--compare-dest", abs)
	}
	args = append(args, src, dst)
	return s.run.Run(ctx, "rsync", args...)
}
