package patharchive

import (
	"context"
	"path/filepath"

	"github.com/cloudsnap/cloudsnap/pkg/runner"
)

// externalArchiver shells out to 7z or zip. Both tools run from the
// snapshot's parent directory so entries are rooted at the snapshot name.
type externalArchiver struct {
	format   Format
	password string
	run      *runner.Runner
}

func (a *externalArchiver) Archive(ctx context.Context, snapshotDir string) (string, error) {
	archivePath := snapshotDir + a.format.Ext()
	dir := filepath.Dir(snapshotDir)
	base := filepath.Base(snapshotDir)

	var name string
	var args []string
	switch a.format {
	case Zip:
		name = "zip"
		args = []string{"-r", "-9", "-y"}
		if a.password != "" {
			args = append(args, "-e", "-P", a.password)
		}
	default:
		name = "7z"
		args = []string{"a", "-r"}
		if a.password != "" {
			// -mhe=on also encrypts the archive header, hiding file names.
			args = append(args, "-p"+a.password, "-mhe=on")
		}
	}
	args = append(args, archivePath, base)

	if err := a.run.RunIn(ctx, dir, name, args...); err != nil {
		return "", err
	}
	return archivePath, nil
}
