package retention

import "github.com/cloudsnap/cloudsnap/pkg/catalog"

// Plan is an immutable set of entries marked for removal. It is produced
// fresh on every planning pass and never persisted; execution is a separate
// step performed by the orchestrator, which keeps planning testable without
// filesystem access and makes dry runs trivial.
type Plan struct {
	Entries []catalog.Entry
}

// Empty reports whether the plan marks nothing for removal.
func (p Plan) Empty() bool {
	return len(p.Entries) == 0
}

// Paths returns the paths of all planned entries in deterministic order.
func (p Plan) Paths() []string {
	paths := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		paths = append(paths, e.Path)
	}
	return paths
}
