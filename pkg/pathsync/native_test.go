package pathsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", path, err)
	}
}

func TestNativeSyncCopiesDirectoryUnderBaseName(t *testing.T) {
	src := filepath.Join(t.TempDir(), "projects")
	dst := t.TempDir()
	now := time.Now()

	writeFile(t, filepath.Join(src, "a.txt"), "alpha", now)
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "bravo", now)

	s := &nativeSyncer{modTimeWindow: time.Second}
	if err := s.Sync(context.Background(), src, dst, nil); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	for _, rel := range []string{"projects/a.txt", "projects/sub/b.txt"} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Errorf("expected %s in destination: %v", rel, err)
		}
	}
}

func TestNativeSyncSkipsFilesUnchangedInBase(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "projects")
	base := filepath.Join(tmp, "base")
	dst := filepath.Join(tmp, "dst")
	old := time.Now().Add(-time.Hour)
	now := time.Now()

	// unchanged.txt exists identically in the base; changed.txt is newer in
	// the source; new.txt has no base counterpart.
	writeFile(t, filepath.Join(src, "unchanged.txt"), "same", old)
	writeFile(t, filepath.Join(base, "projects", "unchanged.txt"), "same", old)
	writeFile(t, filepath.Join(src, "changed.txt"), "new content", now)
	writeFile(t, filepath.Join(base, "projects", "changed.txt"), "old content", old)
	writeFile(t, filepath.Join(src, "new.txt"), "brand new", now)

	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatalf("failed to create dst: %v", err)
	}

	s := &nativeSyncer{modTimeWindow: time.Second}
	if err := s.Sync(context.Background(), src, dst, []string{base}); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dst, "projects", "unchanged.txt")); !os.IsNotExist(err) {
		t.Error("expected unchanged.txt to be skipped")
	}
	if _, err := os.Stat(filepath.Join(dst, "projects", "changed.txt")); err != nil {
		t.Errorf("expected changed.txt to be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "projects", "new.txt")); err != nil {
		t.Errorf("expected new.txt to be copied: %v", err)
	}
}

func TestNativeSyncSingleFileSource(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "notes.txt")
	dst := filepath.Join(tmp, "dst")
	writeFile(t, src, "notes", time.Now())
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatalf("failed to create dst: %v", err)
	}

	s := &nativeSyncer{}
	if err := s.Sync(context.Background(), src, dst, nil); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "notes.txt"))
	if err != nil {
		t.Fatalf("expected the file in the destination: %v", err)
	}
	if string(data) != "notes" {
		t.Errorf("copied content = %q, want %q", data, "notes")
	}
}

func TestNativeSyncDryRunWritesNothing(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "projects")
	dst := filepath.Join(tmp, "dst")
	writeFile(t, filepath.Join(src, "a.txt"), "alpha", time.Now())
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatalf("failed to create dst: %v", err)
	}

	s := &nativeSyncer{dryRun: true}
	if err := s.Sync(context.Background(), src, dst, nil); err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}

	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatalf("failed to read dst: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run created entries: %v", entries)
	}
}

func TestParseEngine(t *testing.T) {
	if e, err := ParseEngine("rsync"); err != nil || e != Rsync {
		t.Errorf("ParseEngine(rsync) = %v, %v", e, err)
	}
	if e, err := ParseEngine("native"); err != nil || e != Native {
		t.Errorf("ParseEngine(native) = %v, %v", e, err)
	}
	if _, err := ParseEngine("robocopy"); err == nil {
		t.Error("expected an error for an unsupported engine")
	}
}
