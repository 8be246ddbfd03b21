package pathsync

import (
	"fmt"

	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// Engine represents the file synchronization engine to use.
type Engine int

const (
	// Rsync shells out to rsync, the battle-tested default on unix hosts.
	Rsync Engine = iota
	// Native uses the cross-platform Go implementation.
	Native
)

var engineToString = map[Engine]string{Rsync: "rsync", Native: "native"}
var stringToEngine = map[string]Engine{}

func init() {
	stringToEngine = util.InvertMap(engineToString)
}

// String returns the string representation of an Engine.
func (e Engine) String() string {
	if str, ok := engineToString[e]; ok {
		return str
	}
	return fmt.Sprintf("unknown_engine(%d)", e)
}

// ParseEngine parses a string and returns the corresponding Engine.
func ParseEngine(s string) (Engine, error) {
	if engine, ok := stringToEngine[s]; ok {
		return engine, nil
	}
	return 0, fmt.Errorf("invalid sync engine: %q. Must be 'rsync' or 'native'", s)
}
