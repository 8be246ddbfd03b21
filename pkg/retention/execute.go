package retention

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
)

// Remover deletes a single planned entry: a local folder or file, or a
// remote object, depending on which side the plan was computed for.
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// Executor applies a deletion plan through a Remover. Deletions run in a
// small worker pool; latency dominates on network drives and remote stores.
// Failures are logged and skipped, never fatal: the next run re-plans from a
// fresh scan and picks the entry up again.
type Executor struct {
	Workers int
	DryRun  bool
}

// Execute removes every entry of the plan. In dry-run mode it only records
// intent.
func (e Executor) Execute(ctx context.Context, plan Plan, remover Remover) error {
	if plan.Empty() {
		if e.DryRun {
			plog.Debug("[DRY RUN] Nothing needs deletion")
		} else {
			plog.Debug("Nothing needs deletion")
		}
		return nil
	}

	plog.Info("Deleting outdated snapshots", "count", len(plan.Entries))

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, entry := range plan.Entries {
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
		}

		if e.DryRun {
			plog.Notice("[DRY RUN] DELETE", "path", entry.Path)
			continue
		}

		entry := entry
		g.Go(func() error {
			plog.Notice("DELETE", "path", entry.Path)
			if err := remover.Remove(gctx, entry.Path); err != nil {
				plog.Warn("Failed to delete outdated snapshot", "path", entry.Path, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}
