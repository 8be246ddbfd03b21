package retention

import (
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/catalog"
)

// RemotePlanner computes the deletion plan for a remote listing. It operates
// over archive names only; folder entries never appear remotely.
//
// Unlike the local planner it applies the age cutoff directly and
// independently per kind: there is no protection for the newest archive and
// no cascade coupling between full and diff lifetimes. A diff archive older
// than the cutoff is deleted even when its full survives, which can leave
// remote diffs unrestorable. This asymmetry is deliberate scope reduction
// for remote storage, not an oversight to harmonize away.
type RemotePlanner struct {
	Policy Policy
}

// Plan classifies a remote listing and marks the aged archives of the mode's
// kind for deletion: diff archives on incremental runs, full archives on
// full runs.
func (p RemotePlanner) Plan(names []string, now time.Time) Plan {
	v := catalog.Scan("", names)
	cutoff := now.Add(-time.Duration(p.Policy.ThresholdDays) * 24 * time.Hour)

	var candidates []catalog.Entry
	switch p.Policy.Mode {
	case IncrementalRun:
		candidates = v.Diffs
	case FullRun:
		candidates = v.Fulls
	}

	var entries []catalog.Entry
	for _, e := range candidates {
		if !e.Archive {
			continue
		}
		if e.Timestamp.Before(cutoff) {
			entries = append(entries, e)
		}
	}
	catalog.SortAscending(entries)
	return Plan{Entries: entries}
}
