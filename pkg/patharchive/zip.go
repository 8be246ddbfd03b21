package patharchive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
)

// zipArchiver writes a zip archive in-process. The archive is built in a
// temp file next to the target and renamed into place, so a crashed run
// never leaves a half-written archive with a valid snapshot name.
type zipArchiver struct {
	dryRun bool

	// Pool for flate writers to reduce GC pressure across entries.
	flatePool sync.Pool
}

// pooledFlateWriter returns its flate writer to the pool on close.
type pooledFlateWriter struct {
	*flate.Writer
	pool *sync.Pool
}

func (w *pooledFlateWriter) Close() error {
	err := w.Writer.Close()
	w.pool.Put(w.Writer)
	return err
}

func (a *zipArchiver) Archive(ctx context.Context, snapshotDir string) (string, error) {
	archivePath := snapshotDir + Zip.Ext()

	if a.dryRun {
		plog.Notice("[DRY RUN] Would create archive", "path", archivePath)
		return archivePath, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "cloudsnap-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpPath := tmp.Name()

	if err := a.writeArchive(ctx, tmp, snapshotDir); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp archive: %w", err)
	}

	if err := os.Rename(tmpPath, archivePath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename temp archive to final path: %w", err)
	}
	return archivePath, nil
}

func (a *zipArchiver) writeArchive(ctx context.Context, dst io.Writer, snapshotDir string) (retErr error) {
	zw := zip.NewWriter(dst)
	defer func() {
		if err := zw.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("zip writer close failed: %w", err)
		}
	}()

	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		fw, ok := a.flatePool.Get().(*flate.Writer)
		if !ok {
			var err error
			fw, err = flate.NewWriter(out, flate.DefaultCompression)
			if err != nil {
				return nil, err
			}
		}
		fw.Reset(out)
		return &pooledFlateWriter{Writer: fw, pool: &a.flatePool}, nil
	})

	// Entries are rooted at the snapshot name, matching what the external
	// tools produce when run from the snapshot's parent directory.
	base := filepath.Base(snapshotDir)
	return filepath.WalkDir(snapshotDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(snapshotDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(filepath.Join(base, rel))

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", path, err)
		}

		plog.Debug("ADD", "file", key)
		if info.Mode()&os.ModeSymlink != 0 {
			return a.writeSymlink(zw, path, key, info)
		}
		if !info.Mode().IsRegular() {
			plog.Debug("Skipping non-regular file", "path", key)
			return nil
		}
		return a.writeFile(zw, path, key, info)
	})
}

func (a *zipArchiver) writeFile(zw *zip.Writer, path, key string, info fs.FileInfo) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer in.Close()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", key, err)
	}
	header.Name = key
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header for %s: %w", key, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return nil
}

func (a *zipArchiver) writeSymlink(zw *zip.Writer, path, key string, info fs.FileInfo) error {
	linkTarget, err := os.Readlink(path)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", key, err)
	}
	header.Name = key
	// Symlinks are stored, not compressed.
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(linkTarget))
	return err
}
