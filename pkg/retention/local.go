// Package retention computes which snapshots may be removed without breaking
// a differential chain. Planning is pure: a planner maps a catalog view and a
// point in time to an immutable deletion plan. Malformed or unrelated entries
// never reach a planner; the catalog drops them during scanning.
package retention

import (
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/catalog"
	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/snapname"
)

// Policy is the age threshold and run mode a planner applies.
type Policy struct {
	// ThresholdDays is the age in days beyond which a full snapshot becomes
	// eligible for retirement.
	ThresholdDays int
	Mode          Mode
}

// Planner computes the local deletion plan.
//
// Two guarantees hold for the normal path: the most recent full snapshot is
// never deleted regardless of age, so a valid restore point always exists;
// and differentials are swept by the pivot's timestamp rather than their own
// age, so no differential ever outlives the full backup it is relative to.
type Planner struct {
	Policy Policy

	// Ephemeral, when set, is a temporary working directory used because no
	// persistent destination was configured. The plan is then always exactly
	// this directory, bypassing the aging rules.
	Ephemeral string

	// KeepOnly, when set, switches to clean-all: every catalog entry except
	// this path is planned for deletion.
	KeepOnly string
}

// Plan computes the deletion plan for a catalog view at the given instant.
// It never fails; an empty plan means nothing is old enough to retire.
func (p Planner) Plan(v catalog.View, now time.Time) Plan {
	if p.Ephemeral != "" {
		return Plan{Entries: []catalog.Entry{{Path: p.Ephemeral}}}
	}

	if p.KeepOnly != "" {
		var entries []catalog.Entry
		for _, e := range v.Entries() {
			if e.Path != p.KeepOnly {
				entries = append(entries, e)
			}
		}
		catalog.SortAscending(entries)
		return Plan{Entries: entries}
	}

	// Protect the most recent full: it anchors the active chain and is never
	// a deletion candidate, regardless of age.
	fulls := append([]catalog.Entry(nil), v.Fulls...)
	catalog.SortAscending(fulls)
	if len(fulls) > 0 {
		fulls = fulls[:len(fulls)-1]
	}

	cutoff := now.Add(-time.Duration(p.Policy.ThresholdDays) * 24 * time.Hour)
	var agedFulls []catalog.Entry
	for _, f := range fulls {
		if f.Timestamp.Before(cutoff) {
			agedFulls = append(agedFulls, f)
		}
	}
	if len(agedFulls) == 0 {
		// No full old enough to retire, so nothing cascades either.
		return Plan{}
	}

	// The pivot is the most recent aged full. Every differential older than
	// the pivot belongs to the pivot's chain or an even older one; they are
	// swept independent of their own age.
	pivot := agedFulls[len(agedFulls)-1]
	plog.Debug("Retention pivot selected", "path", pivot.Path, "timestamp", snapname.Format(pivot.Timestamp))

	var cascadeDiffs []catalog.Entry
	for _, d := range v.Diffs {
		if d.Timestamp.Before(pivot.Timestamp) {
			cascadeDiffs = append(cascadeDiffs, d)
		}
	}

	var entries []catalog.Entry
	entries = append(entries, cascadeDiffs...)
	if p.Policy.Mode == FullRun {
		entries = append(entries, agedFulls...)
	}
	catalog.SortAscending(entries)
	return Plan{Entries: entries}
}
