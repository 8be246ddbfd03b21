package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
sources:
  - /data/projects
  - /data/photos
target: /mnt/backup
incremental: true
archive:
  format: zip
retention:
  localAfterDays: 14
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(cfg.Sources) != 2 || cfg.Sources[0] != "/data/projects" {
		t.Errorf("sources = %v, want the two configured paths", cfg.Sources)
	}
	if !cfg.Incremental {
		t.Error("expected incremental to be true")
	}
	if cfg.Archive.Format != "zip" {
		t.Errorf("archive format = %q, want %q", cfg.Archive.Format, "zip")
	}
	// Untouched values keep their defaults.
	if cfg.Sync.Engine != "rsync" {
		t.Errorf("sync engine = %q, want the default %q", cfg.Sync.Engine, "rsync")
	}
	if cfg.Engine.DeleteWorkers != 4 {
		t.Errorf("delete workers = %d, want the default 4", cfg.Engine.DeleteWorkers)
	}
	if cfg.Retention.LocalAfterDays != 14 {
		t.Errorf("localAfterDays = %d, want 14", cfg.Retention.LocalAfterDays)
	}
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("CLOUDSNAP_TEST_PW", "s3cret")

	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := "archive:\n  password: $(CLOUDSNAP_TEST_PW)\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Archive.Password != "s3cret" {
		t.Errorf("password = %q, want the expanded env value", cfg.Archive.Password)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sources", func(c *Config) { c.Sources = nil }},
		{"bad sync engine", func(c *Config) { c.Sync.Engine = "robocopy" }},
		{"bad dump compression", func(c *Config) { c.Dump.Compression = "xz" }},
		{"bad archive format", func(c *Config) { c.Archive.Format = "tar.zst" }},
		{"password without archiving", func(c *Config) { c.Archive.Enabled = false; c.Archive.Password = "pw" }},
		{"threshold below disabled sentinel", func(c *Config) { c.Retention.LocalAfterDays = -2 }},
		{"remote retention without remote", func(c *Config) { c.Retention.RemoteAfterDays = 7 }},
		{"zero-day remote retention without remote", func(c *Config) { c.Retention.RemoteAfterDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			cfg.Sources = []string{"/data"}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error, got nil")
			}
		})
	}
}

func TestNormalizeDisablesCleanAllForIncremental(t *testing.T) {
	cfg := NewDefault()
	cfg.Sources = []string{"/data"}
	cfg.Incremental = true
	cfg.Retention.CleanAll = true

	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if cfg.Retention.CleanAll {
		t.Error("expected clean-all to be disabled in incremental mode")
	}
}

func TestNormalizeCleanAllImpliesLocalThreshold(t *testing.T) {
	cfg := NewDefault()
	cfg.Sources = []string{"/data"}
	cfg.Retention.CleanAll = true

	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if cfg.Retention.LocalAfterDays != 1 {
		t.Errorf("localAfterDays = %d, want the implied 1", cfg.Retention.LocalAfterDays)
	}
}

func TestNormalizeCleanAllKeepsExplicitZeroThreshold(t *testing.T) {
	cfg := NewDefault()
	cfg.Sources = []string{"/data"}
	cfg.Retention.CleanAll = true
	cfg.Retention.LocalAfterDays = 0

	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if cfg.Retention.LocalAfterDays != 0 {
		t.Errorf("localAfterDays = %d, want the explicit 0 kept", cfg.Retention.LocalAfterDays)
	}
}

func TestRetentionDisabledByDefault(t *testing.T) {
	cfg := NewDefault()
	if cfg.Retention.LocalAfterDays != -1 || cfg.Retention.RemoteAfterDays != -1 {
		t.Errorf("default thresholds = %d/%d, want -1/-1 (disabled)",
			cfg.Retention.LocalAfterDays, cfg.Retention.RemoteAfterDays)
	}
}
