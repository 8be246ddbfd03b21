// Package catalog classifies a directory or remote listing into the snapshot
// catalog consumed by base selection and retention planning. Scanning is a
// pure function over an already-obtained listing; acquiring the listing is
// the caller's concern.
package catalog

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/snapname"
)

// Entry is a single classified snapshot, folder or archive.
type Entry struct {
	// Path is the entry's location: the base name joined to the scanned
	// directory, or the bare name for remote listings.
	Path      string
	Timestamp time.Time
	Kind      snapname.Kind
	// Archive reports whether the entry is a compressed archive file.
	Archive bool
}

// View holds the classified catalog of one location. Insertion order is
// irrelevant; consumers re-sort by timestamp before use.
type View struct {
	Fulls []Entry
	Diffs []Entry
}

// Empty reports whether the view contains no classified entries.
func (v View) Empty() bool {
	return len(v.Fulls) == 0 && len(v.Diffs) == 0
}

// Entries returns all classified entries of the view in one slice.
func (v View) Entries() []Entry {
	all := make([]Entry, 0, len(v.Fulls)+len(v.Diffs))
	all = append(all, v.Fulls...)
	all = append(all, v.Diffs...)
	return all
}

// Scan decodes and classifies every name in a listing. Names that fail the
// timestamp pattern or classify as unclassified are dropped silently; backup
// directories routinely contain unrelated files. When dir is non-empty each
// entry path is the name joined to dir.
func Scan(dir string, names []string) View {
	var v View
	for _, name := range names {
		n, ok := snapname.Decode(name)
		if !ok || n.Kind == snapname.Unclassified {
			continue
		}

		path := name
		if dir != "" {
			path = filepath.Join(dir, name)
		}
		entry := Entry{Path: path, Timestamp: n.Timestamp, Kind: n.Kind, Archive: n.Archive}

		switch n.Kind {
		case snapname.Full:
			v.Fulls = append(v.Fulls, entry)
		case snapname.Diff:
			v.Diffs = append(v.Diffs, entry)
		}
	}
	return v
}

// SortAscending orders entries by timestamp, oldest first. Equal timestamps
// are broken by lexical path order so results are deterministic regardless
// of listing order.
func SortAscending(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Path < entries[j].Path
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
