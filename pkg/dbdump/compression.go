package dbdump

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// Compression selects how the dump stream is compressed on its way to disk.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

var compressionToString = map[Compression]string{
	None: "none",
	Gzip: "gz",
	Zstd: "zst",
}

var stringToCompression map[string]Compression

func init() {
	stringToCompression = util.InvertMap(compressionToString)
}

func (c Compression) String() string {
	if str, ok := compressionToString[c]; ok {
		return str
	}
	return fmt.Sprintf("unknown_dump_compression(%d)", c)
}

// Ext returns the extension appended to the dump file name, including the
// dot, or an empty string for an uncompressed dump.
func (c Compression) Ext() string {
	if c == None {
		return ""
	}
	return "." + compressionToString[c]
}

func ParseCompression(s string) (Compression, error) {
	if c, ok := stringToCompression[s]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("invalid dump compression: %q. Must be 'none', 'gz' or 'zst'", s)
}

// newWriter wraps dst in the compressor for c. The caller must close the
// returned writer before closing dst.
func (c Compression) newWriter(dst io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return pgzip.NewWriter(dst), nil
	case Zstd:
		return zstd.NewWriter(dst)
	default:
		return nopWriteCloser{dst}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
