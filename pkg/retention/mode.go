package retention

import (
	"fmt"

	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// Mode selects which retention rules apply to a run.
type Mode int

const (
	// FullRun is a run that created a full snapshot. Aged fulls are retired
	// together with the differentials chained to them.
	FullRun Mode = iota
	// IncrementalRun is a run that created a differential snapshot. Full
	// snapshots are never deleted; the active chain must retain every full
	// it could be based on.
	IncrementalRun
)

var modeToString = map[Mode]string{FullRun: "full", IncrementalRun: "incremental"}
var stringToMode = map[string]Mode{}

func init() {
	stringToMode = util.InvertMap(modeToString)
}

// String returns the string representation of a Mode.
func (m Mode) String() string {
	if str, ok := modeToString[m]; ok {
		return str
	}
	return fmt.Sprintf("unknown_retention_mode(%d)", m)
}

// ParseMode parses a string and returns the corresponding Mode.
func ParseMode(s string) (Mode, error) {
	if mode, ok := stringToMode[s]; ok {
		return mode, nil
	}
	return 0, fmt.Errorf("invalid retention mode: %q. Must be 'full' or 'incremental'", s)
}
