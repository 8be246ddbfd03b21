// Package snapname implements the naming convention shared by every snapshot
// folder and archive: a fixed `YYYYMMDD_HHMMSS` timestamp prefix followed by a
// suffix that determines the snapshot kind.
//
// The suffix rules are bit-exact and shared with the remote side:
//
//	""                               -> full backup folder
//	"_diff"                          -> differential backup folder
//	"...(.7z|.zip)" containing _diff -> differential archive
//	"...(.7z|.zip)" otherwise        -> full archive
//	anything else                    -> unclassified, invisible to the catalog
package snapname

import (
	"strings"
	"time"
)

// TimeFormat is the layout of the timestamp prefix.
const TimeFormat = "20060102_150405"

// DiffSuffix marks a differential backup folder. Differential archives carry
// the same marker anywhere in their suffix before the extension.
const DiffSuffix = "_diff"

// Kind classifies a decoded snapshot name. It is computed once at decode
// time; downstream logic switches on the Kind and never re-inspects the
// raw suffix.
type Kind int

const (
	// Unclassified names carry a valid timestamp prefix but an unknown
	// suffix. They are excluded from the catalog.
	Unclassified Kind = iota
	// Full is a complete, self-sufficient snapshot.
	Full
	// Diff is a differential snapshot relative to the nearest preceding full.
	Diff
)

var kindToString = map[Kind]string{Unclassified: "unclassified", Full: "full", Diff: "diff"}

// String returns the string representation of a Kind.
func (k Kind) String() string {
	if str, ok := kindToString[k]; ok {
		return str
	}
	return "unknown_kind"
}

// Name is a decoded snapshot name.
type Name struct {
	// Timestamp is parsed from the fixed prefix, in local time.
	Timestamp time.Time
	// Suffix is everything after the timestamp prefix. May be empty.
	Suffix string
	// Kind is the classification derived from Suffix.
	Kind Kind
	// Archive reports whether the name denotes a compressed archive file
	// (as opposed to a backup folder). Only archives are visible to the
	// remote retention planner.
	Archive bool
}

// Decode parses a snapshot base name. The second return value is false when
// the name does not start with a valid timestamp prefix; such names are
// unrelated files and callers skip them silently, never as an error.
func Decode(name string) (Name, bool) {
	if len(name) < len(TimeFormat) {
		return Name{}, false
	}
	prefix := name[:len(TimeFormat)]
	ts, err := time.ParseInLocation(TimeFormat, prefix, time.Local)
	if err != nil {
		return Name{}, false
	}

	suffix := name[len(TimeFormat):]
	kind, archive := classify(suffix)
	return Name{Timestamp: ts, Suffix: suffix, Kind: kind, Archive: archive}, true
}

// Format renders a timestamp back into the fixed prefix, zero-padded, local
// time. It is the direct inverse of the Decode prefix match.
func Format(t time.Time) string {
	return t.Format(TimeFormat)
}

// classify derives the snapshot kind from the decoded suffix.
func classify(suffix string) (Kind, bool) {
	switch {
	case suffix == "":
		return Full, false
	case suffix == DiffSuffix:
		return Diff, false
	case strings.HasSuffix(suffix, ".7z"), strings.HasSuffix(suffix, ".zip"):
		if strings.Contains(suffix, DiffSuffix) {
			return Diff, true
		}
		return Full, true
	default:
		return Unclassified, false
	}
}
