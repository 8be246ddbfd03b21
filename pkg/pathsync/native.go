package pathsync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// copyWorkers is the worker pool size for file copies. Modest on purpose:
// the default engine is rsync, the native syncer is the portable fallback.
const copyWorkers = 4

// nativeSyncer is the cross-platform Go implementation. It mirrors the rsync
// destination layout: a directory source is copied into dst under its base
// name, and comparison-base lookups use the same destination-relative keys
// rsync would use with --compare-dest.
type nativeSyncer struct {
	dryRun        bool
	modTimeWindow time.Duration
}

func (s *nativeSyncer) Sync(ctx context.Context, src, dst string, bases []string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("cannot stat source %s: %w", src, err)
	}

	if !info.IsDir() {
		key := filepath.Base(src)
		if s.unchangedInBases(key, info, bases) {
			plog.Debug("Skipping unchanged file", "path", key)
			return nil
		}
		return s.copyFile(src, filepath.Join(dst, key), info)
	}

	root := filepath.Dir(src)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyWorkers)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
		}

		key, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if s.dryRun {
				plog.Debug("[DRY RUN] Would create directory", "path", key)
				return nil
			}
			return os.MkdirAll(filepath.Join(dst, key), util.UserWritableDirPerms)
		}
		if !d.Type().IsRegular() {
			plog.Debug("Skipping non-regular file", "path", key)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if s.unchangedInBases(key, info, bases) {
			plog.Debug("Skipping unchanged file", "path", key)
			return nil
		}

		g.Go(func() error {
			return s.copyFile(path, filepath.Join(dst, key), info)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return walkErr
}

// unchangedInBases reports whether any comparison base already holds an
// identical version of the file: same size, and a modification time at least
// as new as the source's, within the configured window.
func (s *nativeSyncer) unchangedInBases(key string, info fs.FileInfo, bases []string) bool {
	for _, base := range bases {
		baseInfo, err := os.Stat(filepath.Join(base, key))
		if err != nil {
			continue
		}
		if baseInfo.Size() != info.Size() {
			continue
		}
		if baseInfo.ModTime().Add(s.modTimeWindow).Before(info.ModTime()) {
			continue
		}
		return true
	}
	return false
}

func (s *nativeSyncer) copyFile(src, dst string, info fs.FileInfo) error {
	if s.dryRun {
		plog.Debug("[DRY RUN] Would copy file", "source", src, "target", dst)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create target file %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close target file %s: %w", dst, err)
	}

	// Preserve the source modification time so later incremental runs can
	// compare against this snapshot.
	return os.Chtimes(dst, time.Now(), info.ModTime())
}
