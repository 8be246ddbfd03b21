package dbdump

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

func TestCompressionRoundTrip(t *testing.T) {
	payload := []byte("CREATE DATABASE example;\n")

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := Gzip.newWriter(&buf)
		if err != nil {
			t.Fatalf("newWriter returned error: %v", err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		r, err := pgzip.NewReader(&buf)
		if err != nil {
			t.Fatalf("failed to open gzip stream: %v", err)
		}
		defer r.Close()
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("failed to read gzip stream: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip = %q, want %q", got, payload)
		}
	})

	t.Run("zstd", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := Zstd.newWriter(&buf)
		if err != nil {
			t.Fatalf("newWriter returned error: %v", err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		r, err := zstd.NewReader(&buf)
		if err != nil {
			t.Fatalf("failed to open zstd stream: %v", err)
		}
		defer r.Close()
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("failed to read zstd stream: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("round trip = %q, want %q", got, payload)
		}
	})

	t.Run("none passes through", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := None.newWriter(&buf)
		if err != nil {
			t.Fatalf("newWriter returned error: %v", err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if !bytes.Equal(buf.Bytes(), payload) {
			t.Errorf("pass-through = %q, want %q", buf.Bytes(), payload)
		}
	})
}

func TestCompressionExt(t *testing.T) {
	tests := []struct {
		compression Compression
		want        string
	}{
		{None, ""},
		{Gzip, ".gz"},
		{Zstd, ".zst"},
	}
	for _, tt := range tests {
		if got := tt.compression.Ext(); got != tt.want {
			t.Errorf("%v.Ext() = %q, want %q", tt.compression, got, tt.want)
		}
	}
}

func TestParseCompression(t *testing.T) {
	if c, err := ParseCompression("zst"); err != nil || c != Zstd {
		t.Errorf("ParseCompression(zst) = %v, %v", c, err)
	}
	if _, err := ParseCompression("bzip2"); err == nil {
		t.Error("expected an error for an unsupported compression")
	}
}

func TestDumpDryRunWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "20240115_020000")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create snapshot dir: %v", err)
	}

	d := New(Gzip, true)
	if err := d.Dump(context.Background(), dir); err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read snapshot dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dry run created entries: %v", entries)
	}
}
