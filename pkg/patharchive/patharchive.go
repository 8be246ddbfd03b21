// Package patharchive consolidates a finished snapshot directory into a
// single archive file next to it. The archive inherits the snapshot name
// plus the format extension, so the catalog classifies it exactly like the
// directory it replaces.
package patharchive

import (
	"context"

	"github.com/cloudsnap/cloudsnap/pkg/runner"
)

// Archiver packs a snapshot directory into one archive file and returns the
// archive path.
type Archiver interface {
	Archive(ctx context.Context, snapshotDir string) (string, error)
}

// NewArchiver selects the implementation for the format. The unencrypted
// zip case is handled in-process; everything else shells out. Encryption is
// never done in-process, and there is no native 7z writer worth carrying.
func NewArchiver(format Format, password string, run *runner.Runner) Archiver {
	if format == Zip && password == "" {
		return &zipArchiver{dryRun: run.DryRun}
	}
	return &externalArchiver{format: format, password: password, run: run}
}
