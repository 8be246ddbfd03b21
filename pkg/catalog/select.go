package catalog

// BaseSet is the ordered list of comparison bases for an incremental run:
// the most recent full snapshot first, then the differentials chained to it,
// oldest to newest. The sync engine consumes the paths in exactly this order;
// each subsequent base further narrows what counts as unchanged.
type BaseSet struct {
	Full  Entry
	Diffs []Entry
}

// Paths returns the base paths in comparison order, full first.
func (b BaseSet) Paths() []string {
	paths := make([]string, 0, 1+len(b.Diffs))
	paths = append(paths, b.Full.Path)
	for _, d := range b.Diffs {
		paths = append(paths, d.Path)
	}
	return paths
}

// SelectBase finds the comparison-base set for an incremental run. It returns
// false when the view holds no full snapshot; the caller must then fall back
// to a full backup. Differentials older than the most recent full belong to
// an earlier chain (or are orphaned) and are excluded.
func SelectBase(v View) (BaseSet, bool) {
	if len(v.Fulls) == 0 {
		return BaseSet{}, false
	}

	fulls := append([]Entry(nil), v.Fulls...)
	SortAscending(fulls)
	full := fulls[len(fulls)-1]

	var diffs []Entry
	for _, d := range v.Diffs {
		if d.Timestamp.After(full.Timestamp) {
			diffs = append(diffs, d)
		}
	}
	SortAscending(diffs)

	return BaseSet{Full: full, Diffs: diffs}, true
}
