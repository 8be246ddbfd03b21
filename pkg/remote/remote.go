// Package remote moves archives to and from cloud storage through rclone.
// Every operation shells out; rclone owns the remote configuration, the
// credentials and the transfer retries.
package remote

import (
	"context"
	"strings"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/runner"
)

// Store is an rclone-backed archive store rooted at a remote path such as
// "gdrive:backups/host1".
type Store struct {
	// Path is the rclone remote path the store operates on.
	Path string

	run *runner.Runner
}

// NewStore returns a Store for the given rclone remote path.
func NewStore(path string, run *runner.Runner) *Store {
	return &Store{Path: path, run: run}
}

// EnsureFolder checks that the remote folder exists and creates it when it
// does not. rclone lsd fails on a missing folder, which is the existence
// probe the mkdir decision is based on.
func (s *Store) EnsureFolder(ctx context.Context) error {
	if err := s.run.Run(ctx, "rclone", "lsd", s.Path); err == nil {
		return nil
	}
	plog.Info("Creating remote folder", "path", s.Path)
	return s.run.Run(ctx, "rclone", "mkdir", s.Path)
}

// Upload copies a local file into the remote folder.
func (s *Store) Upload(ctx context.Context, localPath string) error {
	plog.Info("Uploading to remote", "source", localPath, "target", s.Path)
	return s.run.Run(ctx, "rclone", "copy", localPath, s.Path)
}

// Delete removes a single remote file by name.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.run.Run(ctx, "rclone", "delete", s.Path+"/"+name)
}

// List returns the bare file names in the remote folder. Listing must work
// during a dry run so retention can still plan, so this always executes.
func (s *Store) List(ctx context.Context) ([]string, error) {
	out, err := s.run.Output(ctx, "rclone", "ls", s.Path)
	if err != nil {
		return nil, err
	}
	return parseListing(out), nil
}

// parseListing extracts file names from rclone ls output. Each line is a
// size followed by the name; names may contain spaces.
func parseListing(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		_, name, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		names = append(names, strings.TrimSpace(name))
	}
	return names
}
