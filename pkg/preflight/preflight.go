// Package preflight provides validation checks that run before a backup
// begins, designed to fail fast with friendlier errors than letting the
// pipeline trip over a missing or read-only destination mid-run.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// lowSpaceBytes is the free-space level below which a warning is logged.
const lowSpaceBytes = 1 << 30 // 1 GiB

// CheckTargetAccessible verifies the destination base directory exists and is
// a directory. A missing or uncreatable destination is a fatal setup failure.
func CheckTargetAccessible(targetPath string) error {
	info, err := os.Stat(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("target directory %s does not exist", targetPath)
		}
		return fmt.Errorf("cannot access target path %s: %w", targetPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("target path exists but is not a directory: %s", targetPath)
	}
	return nil
}

// CheckTargetWritable ensures the destination can be written to by creating
// and deleting a probe file.
func CheckTargetWritable(targetPath string) error {
	probe := filepath.Join(targetPath, ".cloudsnap-writetest.tmp")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return fmt.Errorf("target directory %s is not writable: %w", targetPath, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// WarnOnLowFreeSpace probes the free space at the destination and logs a
// warning when it runs low. The probe never fails the run; some filesystems
// cannot report free space at all.
func WarnOnLowFreeSpace(targetPath string) {
	free, err := freeSpace(targetPath)
	if err != nil {
		plog.Debug("Could not determine free space", "path", targetPath, "error", err)
		return
	}
	if free < lowSpaceBytes {
		plog.Warn("Destination is low on free space", "path", targetPath, "freeBytes", free)
	}
}
