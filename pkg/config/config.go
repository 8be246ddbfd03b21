package config

import (
	"fmt"

	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/util"
)

// ConfigFileName is the default name of the configuration file.
const ConfigFileName = "cloudsnap.config.yaml"

type EngineConfig struct {
	// DeleteWorkers is the worker pool size for deleting outdated snapshots.
	DeleteWorkers int `yaml:"deleteWorkers"`
}

type SyncConfig struct {
	// Engine selects the file synchronization engine: 'rsync' or 'native'.
	Engine string `yaml:"engine"`
	// ModTimeWindowSeconds is the window in which the native engine treats
	// file modification times as equal. Handles filesystem timestamp
	// precision differences. 0 means exact match.
	ModTimeWindowSeconds int `yaml:"modTimeWindowSeconds"`
}

type DumpConfig struct {
	// MySQL enables dumping all MySQL databases into the snapshot
	// (may require root privilege).
	MySQL bool `yaml:"mysql"`
	// Compression compresses the dump file: 'none', 'gz' or 'zst'.
	Compression string `yaml:"compression"`
}

type ArchiveConfig struct {
	// Enabled compresses the snapshot folder into a single archive.
	Enabled bool `yaml:"enabled"`
	// Format is the archive format: 'zip' or '7z'. Only these two extensions
	// participate in the snapshot catalog, locally and remotely.
	Format string `yaml:"format"`
	// Password, when set, encrypts the archive. Encryption is always
	// delegated to the external archiver; it is never done in-process.
	Password string `yaml:"password"`
}

type RemoteConfig struct {
	// Path is the rclone destination, '<remote name>:<folder>'.
	// Empty disables uploading.
	Path string `yaml:"path"`
}

type RetentionConfig struct {
	// LocalAfterDays retires local snapshots whose chain is older than this
	// many days. 0 retires everything but the protected newest full;
	// -1 disables local retention.
	LocalAfterDays int `yaml:"localAfterDays"`
	// RemoteAfterDays deletes remote archives older than this many days.
	// 0 deletes every archive of the run's kind; -1 disables remote
	// retention.
	RemoteAfterDays int `yaml:"remoteAfterDays"`
	// CleanAll deletes everything but the archive produced by the current
	// run. Incompatible with incremental mode.
	CleanAll bool `yaml:"cleanAll"`
}

// RuntimeConfig holds per-invocation flags that never come from the file.
type RuntimeConfig struct {
	DryRun bool
	Quiet  bool
}

type Config struct {
	// Sources are the local paths to back up.
	Sources []string `yaml:"sources"`
	// Target is the base destination directory for snapshot sets. Empty
	// means an ephemeral temporary directory is created and removed at the
	// end of the run.
	Target string `yaml:"target"`
	// Incremental backs up only changes since the latest full snapshot and
	// its differential chain.
	Incremental bool   `yaml:"incremental"`
	LogLevel    string `yaml:"logLevel"`
	// Schedule is an optional cron expression; the pipeline then runs
	// repeatedly instead of once.
	Schedule  string          `yaml:"schedule"`
	Engine    EngineConfig    `yaml:"engine"`
	Sync      SyncConfig      `yaml:"sync"`
	Dump      DumpConfig      `yaml:"dump"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Remote    RemoteConfig    `yaml:"remote"`
	Retention RetentionConfig `yaml:"retention"`
	Runtime   RuntimeConfig   `yaml:"-"`
}

// NewDefault creates and returns a Config struct with sensible default values.
func NewDefault() Config {
	return Config{
		Sources:     []string{}, // Intentionally empty to force user configuration.
		Target:      "",         // Empty means an ephemeral temporary destination.
		Incremental: false,
		LogLevel:    "info",
		Engine: EngineConfig{
			DeleteWorkers: 4, // A sensible default for deleting entire snapshot sets.
		},
		Sync: SyncConfig{
			Engine:               "rsync",
			ModTimeWindowSeconds: 1,
		},
		Dump: DumpConfig{
			MySQL:       false,
			Compression: "none",
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Format:  "7z",
		},
		Retention: RetentionConfig{
			LocalAfterDays:  -1, // Disabled by default.
			RemoteAfterDays: -1, // Disabled by default.
			CleanAll:        false,
		},
	}
}

// Normalize resolves interactions between options the way a run expects
// them, warning about combinations that are silently adjusted.
func (c *Config) Normalize() error {
	for i, src := range c.Sources {
		expanded, err := util.ExpandPath(src)
		if err != nil {
			return err
		}
		c.Sources[i] = expanded
	}
	if c.Target != "" {
		expanded, err := util.ExpandPath(c.Target)
		if err != nil {
			return err
		}
		c.Target = expanded
	}

	if c.Retention.CleanAll {
		if c.Incremental {
			plog.Warn("clean-all cannot be used with incremental mode. Disabled")
			c.Retention.CleanAll = false
		} else if c.Retention.LocalAfterDays < 0 {
			c.Retention.LocalAfterDays = 1
		}
	}
	return nil
}

// Validate checks the configuration for values no run could work with.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("no source paths configured")
	}

	switch c.Sync.Engine {
	case "rsync", "native":
	default:
		return fmt.Errorf("invalid sync engine: %q. Must be 'rsync' or 'native'", c.Sync.Engine)
	}

	switch c.Dump.Compression {
	case "", "none", "gz", "zst":
	default:
		return fmt.Errorf("invalid dump compression: %q. Must be 'none', 'gz' or 'zst'", c.Dump.Compression)
	}

	switch c.Archive.Format {
	case "zip", "7z":
	default:
		return fmt.Errorf("invalid archive format: %q. Must be 'zip' or '7z'", c.Archive.Format)
	}

	if c.Archive.Password != "" && !c.Archive.Enabled {
		return fmt.Errorf("an archive password is set but archiving is disabled")
	}

	if c.Retention.LocalAfterDays < -1 || c.Retention.RemoteAfterDays < -1 {
		return fmt.Errorf("retention thresholds must be a day count, 0, or -1 to disable")
	}

	if c.Retention.RemoteAfterDays >= 0 && c.Remote.Path == "" {
		return fmt.Errorf("remote retention is configured but no remote path is set")
	}

	return nil
}
