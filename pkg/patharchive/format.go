package patharchive

import (
	"fmt"

	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// Format represents the archive container format. Only the two extensions
// the snapshot name codec classifies are supported; any other container
// would leave the archive invisible to the catalog.
type Format string

const (
	Zip      Format = "zip"
	SevenZip Format = "7z"
)

var formatToString = map[Format]string{
	Zip:      "zip",
	SevenZip: "7z",
}

var stringToFormat map[string]Format

func init() {
	stringToFormat = util.InvertMap(formatToString)
}

func (f Format) String() string {
	if str, ok := formatToString[f]; ok {
		return str
	}
	return fmt.Sprintf("unknown_archive_format(%s)", string(f))
}

// Ext returns the file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

func ParseFormat(s string) (Format, error) {
	if format, ok := stringToFormat[s]; ok {
		return format, nil
	}
	return "", fmt.Errorf("invalid archive format: %q. Must be 'zip' or '7z'", s)
}
