// Package engine sequences a complete backup run: source copy, optional
// database dump, optional archiving, optional upload and finally retention
// on both sides. The stages run strictly in order; external tools block the
// run until they exit.
//
// External command failures never abort the run. They are recorded on a
// run-scoped flag and the remaining stages continue best-effort, except the
// cleanup stages: those are skipped entirely when the flag is set, so a run
// that may have left an incomplete chain never prunes existing backups.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/catalog"
	"github.com/cloudsnap/cloudsnap/pkg/config"
	"github.com/cloudsnap/cloudsnap/pkg/patharchive"
	"github.com/cloudsnap/cloudsnap/pkg/pathsync"
	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/retention"
	"github.com/cloudsnap/cloudsnap/pkg/snapname"
	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// maxNameAttempts bounds the collision counter appended to the snapshot
// name when a same-second run already produced one.
const maxNameAttempts = 100

// Dumper saves a database dump into the snapshot directory.
type Dumper interface {
	Dump(ctx context.Context, snapshotDir string) error
}

// Store is the remote side of the pipeline: archive upload and the listing
// and deletion remote retention works on.
type Store interface {
	EnsureFolder(ctx context.Context) error
	Upload(ctx context.Context, localPath string) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// Engine orchestrates one backup run from its collaborators.
type Engine struct {
	cfg config.Config

	syncer   pathsync.Syncer
	archiver patharchive.Archiver
	dumper   Dumper
	store    Store

	// now is the run clock, replaced in tests.
	now func() time.Time
}

// New creates an engine. archiver, dumper and store may be nil when the
// corresponding stage is disabled in the configuration.
func New(cfg config.Config, syncer pathsync.Syncer, archiver patharchive.Archiver, dumper Dumper, store Store) *Engine {
	return &Engine{
		cfg:      cfg,
		syncer:   syncer,
		archiver: archiver,
		dumper:   dumper,
		store:    store,
		now:      time.Now,
	}
}

// run holds the state of a single pipeline pass.
type run struct {
	destRoot    string
	ephemeral   string
	snapshotDir string
	incremental bool
	bases       []string
	archivePath string
	failed      bool
}

// fail records an external failure on the run and keeps going.
func (r *run) fail(stage string, err error) {
	r.failed = true
	plog.Error("Stage failed", "stage", stage, "error", err)
}

// Execute performs one complete backup run.
func (e *Engine) Execute(ctx context.Context) error {
	start := e.now()
	if e.cfg.Runtime.DryRun {
		plog.Info("Starting backup run (dry run)")
	} else {
		plog.Info("Starting backup run")
	}

	r := &run{incremental: e.cfg.Incremental}
	if err := e.prepareDestination(r, start); err != nil {
		return err
	}
	plog.Info("Local snapshot folder", "path", r.snapshotDir)

	e.syncSources(ctx, r)

	if e.cfg.Dump.MySQL && e.dumper != nil {
		if err := e.dumper.Dump(ctx, r.snapshotDir); err != nil {
			r.fail("dump", err)
		}
	}

	if e.cfg.Archive.Enabled && e.archiver != nil {
		archivePath, err := e.archiver.Archive(ctx, r.snapshotDir)
		if err != nil {
			r.fail("archive", err)
		} else {
			r.archivePath = archivePath
		}
	}

	if e.cfg.Remote.Path != "" && e.store != nil {
		// Without archiving the snapshot folder itself is the upload
		// artifact. An enabled but failed archive stage uploads nothing.
		artifact := r.archivePath
		if artifact == "" && !e.cfg.Archive.Enabled {
			artifact = r.snapshotDir
		}
		if artifact != "" {
			e.upload(ctx, r, artifact)
		}
	}

	if r.failed {
		plog.Warn("Run finished with errors. Skipping cleanup so an incomplete run never prunes existing backups")
		if r.ephemeral != "" {
			plog.Warn("Temporary folder left behind", "path", r.ephemeral)
		}
		return fmt.Errorf("backup run finished with errors")
	}

	e.cleanLocal(ctx, r, start)
	e.cleanRemote(ctx, r, start)

	plog.Info("Backup run finished")
	return nil
}

// prepareDestination resolves the destination root, selects the comparison
// bases for an incremental run and picks a collision-free snapshot name.
// Failures here are fatal; nothing has been copied yet.
func (e *Engine) prepareDestination(r *run, start time.Time) error {
	r.destRoot = e.cfg.Target
	if r.destRoot == "" {
		if e.cfg.Runtime.DryRun {
			r.ephemeral = filepath.Join(os.TempDir(), "cloudsnap-dryrun")
			plog.Notice("[DRY RUN] Would create temporary folder", "path", r.ephemeral)
		} else {
			tempDir, err := os.MkdirTemp("", "cloudsnap-*")
			if err != nil {
				return fmt.Errorf("failed to create temporary folder: %w", err)
			}
			r.ephemeral = tempDir
			plog.Info("Created temporary folder", "path", tempDir)
		}
		r.destRoot = r.ephemeral
	} else {
		info, err := os.Stat(r.destRoot)
		if err != nil {
			return fmt.Errorf("local output folder does not exist: %s: %w", r.destRoot, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("local output folder is not a directory: %s", r.destRoot)
		}
	}

	if r.incremental {
		baseSet, ok := catalog.SelectBase(e.scanLocal(r.destRoot))
		if !ok {
			plog.Warn("No full snapshot found for incremental mode. Falling back to a full backup")
			r.incremental = false
		} else {
			r.bases = baseSet.Paths()
			plog.Info("Incremental backup against", "base", r.bases[0], "diffs", len(r.bases)-1)
		}
	}

	for i := 0; ; i++ {
		if i == maxNameAttempts {
			return fmt.Errorf("failed to find a free snapshot name in %s after %d attempts", r.destRoot, maxNameAttempts)
		}
		name := snapname.Format(start)
		if i > 0 {
			name += strconv.Itoa(i)
		}
		if r.incremental {
			name += snapname.DiffSuffix
		}
		candidate := filepath.Join(r.destRoot, name)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			r.snapshotDir = candidate
			break
		}
	}

	if e.cfg.Runtime.DryRun {
		plog.Notice("[DRY RUN] Would create snapshot folder", "path", r.snapshotDir)
		return nil
	}
	if err := os.MkdirAll(r.snapshotDir, util.UserWritableDirPerms); err != nil {
		return fmt.Errorf("cannot create snapshot folder %s: %w", r.snapshotDir, err)
	}
	return nil
}

// syncSources copies every configured source into the snapshot folder. A
// missing source is a warning, not a failure.
func (e *Engine) syncSources(ctx context.Context, r *run) {
	for _, src := range e.cfg.Sources {
		if _, err := os.Stat(src); err != nil {
			plog.Warn("Source path does not exist. Skipped", "path", src)
			continue
		}
		plog.Info("Copying", "source", src, "target", r.snapshotDir)
		if err := e.syncer.Sync(ctx, src, r.snapshotDir, r.bases); err != nil {
			r.fail("sync", err)
		}
	}
}

func (e *Engine) upload(ctx context.Context, r *run, artifact string) {
	if err := e.store.EnsureFolder(ctx); err != nil {
		r.fail("upload", fmt.Errorf("failed to create remote folder: %w", err))
		return
	}
	if err := e.store.Upload(ctx, artifact); err != nil {
		r.fail("upload", err)
	}
}

// cleanLocal applies the local retention plan and removes the uploaded
// archive from disk when a remote holds it.
func (e *Engine) cleanLocal(ctx context.Context, r *run, now time.Time) {
	cleanAll := e.cfg.Retention.CleanAll
	if r.ephemeral == "" && e.cfg.Retention.LocalAfterDays < 0 && !cleanAll {
		return
	}

	planner := retention.Planner{
		Policy: retention.Policy{
			ThresholdDays: e.cfg.Retention.LocalAfterDays,
			Mode:          modeFor(r.incremental),
		},
		Ephemeral: r.ephemeral,
	}
	if cleanAll {
		// Keep only what this run produced: the archive, or the snapshot
		// folder itself when archiving is off.
		planner.KeepOnly = r.archivePath
		if planner.KeepOnly == "" {
			planner.KeepOnly = r.snapshotDir
		}
	}

	plan := planner.Plan(e.scanLocal(r.destRoot), now)
	executor := retention.Executor{Workers: e.cfg.Engine.DeleteWorkers, DryRun: e.cfg.Runtime.DryRun}
	if err := executor.Execute(ctx, plan, localRemover{}); err != nil {
		plog.Warn("Local cleanup did not complete", "error", err)
	}

	// The remote holds the archive now; the local copy has served its
	// purpose. The ephemeral case is covered by the plan above.
	if r.ephemeral == "" && e.cfg.Remote.Path != "" && r.archivePath != "" && !cleanAll {
		if e.cfg.Runtime.DryRun {
			plog.Notice("[DRY RUN] DELETE", "path", r.archivePath)
		} else {
			plog.Notice("DELETE", "path", r.archivePath)
			if err := os.RemoveAll(r.archivePath); err != nil {
				plog.Warn("Failed to delete local archive", "path", r.archivePath, "error", err)
			}
		}
	}
}

// cleanRemote applies the remote retention plan over a fresh listing.
func (e *Engine) cleanRemote(ctx context.Context, r *run, now time.Time) {
	if e.cfg.Retention.RemoteAfterDays < 0 || e.store == nil {
		return
	}

	names, err := e.store.List(ctx)
	if err != nil {
		plog.Warn("Failed to list remote folder. Skipping remote cleanup", "error", err)
		return
	}

	planner := retention.RemotePlanner{
		Policy: retention.Policy{
			ThresholdDays: e.cfg.Retention.RemoteAfterDays,
			Mode:          modeFor(r.incremental),
		},
	}
	plan := planner.Plan(names, now)
	executor := retention.Executor{Workers: e.cfg.Engine.DeleteWorkers, DryRun: e.cfg.Runtime.DryRun}
	if err := executor.Execute(ctx, plan, remoteRemover{store: e.store}); err != nil {
		plog.Warn("Remote cleanup did not complete", "error", err)
	}
}

// modeFor maps the run's effective mode to the retention mode. The per-run
// fallback counts: a run that fell back to a full backup also retires full
// snapshots, locally and remotely.
func modeFor(incremental bool) retention.Mode {
	if incremental {
		return retention.IncrementalRun
	}
	return retention.FullRun
}

// scanLocal builds the catalog view of the destination root. The catalog is
// re-read fresh on every use; runs never cache it.
func (e *Engine) scanLocal(destRoot string) catalog.View {
	entries, err := os.ReadDir(destRoot)
	if err != nil {
		plog.Debug("Cannot read destination folder", "path", destRoot, "error", err)
		return catalog.View{}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return catalog.Scan(destRoot, names)
}

// localRemover deletes local snapshot folders and archive files.
type localRemover struct{}

func (localRemover) Remove(_ context.Context, path string) error {
	return os.RemoveAll(path)
}

// remoteRemover issues remote deletes for planned entries. Remote plan
// entries carry bare names, not paths.
type remoteRemover struct {
	store Store
}

func (r remoteRemover) Remove(ctx context.Context, name string) error {
	return r.store.Delete(ctx, name)
}
