package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cloudsnap/cloudsnap/pkg/buildinfo"
	"github.com/cloudsnap/cloudsnap/pkg/config"
	"github.com/cloudsnap/cloudsnap/pkg/dbdump"
	"github.com/cloudsnap/cloudsnap/pkg/engine"
	"github.com/cloudsnap/cloudsnap/pkg/patharchive"
	"github.com/cloudsnap/cloudsnap/pkg/pathsync"
	"github.com/cloudsnap/cloudsnap/pkg/plog"
	"github.com/cloudsnap/cloudsnap/pkg/preflight"
	"github.com/cloudsnap/cloudsnap/pkg/remote"
	"github.com/cloudsnap/cloudsnap/pkg/runner"
	"github.com/cloudsnap/cloudsnap/pkg/sched"
)

// stringSlice collects repeated flag values.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ", ")
}

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", buildinfo.Name, buildinfo.Version)
		fmt.Fprintf(flag.CommandLine.Output(), "Snapshot backup to local folders and rclone remotes, with incremental chains and retention.\n\n")
		flag.PrintDefaults()
	}
}

// parseFlagConfig parses the command line and merges the used flags over a
// configuration loaded from file (or the defaults when no file is present).
// Flags always win over the file.
func parseFlagConfig() (config.Config, bool, error) {
	var sources stringSlice
	flag.Var(&sources, "source", "Source path to back up. May be given multiple times.")
	targetFlag := flag.String("target", "", "Base destination directory for snapshots. Empty uses a temporary folder removed at the end of the run.")
	incrementalFlag := flag.Bool("incremental", false, "Back up only changes since the latest full snapshot and its differential chain.")
	remoteFlag := flag.String("remote", "", "rclone destination ('<remote>:<folder>') to upload the archive to.")
	mysqlFlag := flag.Bool("mysql", false, "Dump all MySQL databases into the snapshot (may require root privilege).")
	dumpCompressionFlag := flag.String("dump-compression", "", "Compression for the database dump: 'none', 'gz' or 'zst'.")
	noCompressFlag := flag.Bool("no-compress", false, "Skip archiving the snapshot folder.")
	formatFlag := flag.String("format", "", "Archive format: '7z' or 'zip'.")
	passwordFlag := flag.String("password", "", "Encrypt the archive with this password.")
	syncEngineFlag := flag.String("sync-engine", "", "File synchronization engine: 'rsync' or 'native'.")
	cleanLocalFlag := flag.Int("clean-local-after", -1, "Retire local snapshots whose chain is older than this many days. 0 retires everything but the newest full; -1 disables.")
	cleanRemoteFlag := flag.Int("clean-remote-after", -1, "Delete remote archives older than this many days. 0 deletes every archive of the run's kind; -1 disables.")
	cleanAllFlag := flag.Bool("clean-all", false, "Delete everything in the destination except the archive produced by this run.")
	scheduleFlag := flag.String("schedule", "", "Cron expression ('m h dom mon dow') to run repeatedly instead of once.")
	configFlag := flag.String("config", "", "Path to the configuration file (default: ./"+config.ConfigFileName+" if present).")
	logLevelFlag := flag.String("log-level", "", "Logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	dryRunFlag := flag.Bool("dry-run", false, "Show what would be done without making any changes.")
	quietFlag := flag.Bool("quiet", false, "Suppress everything below warnings.")
	versionFlag := flag.Bool("version", false, "Print the application version and exit.")

	flag.Parse()

	if *versionFlag {
		return config.Config{}, true, nil
	}

	cfg, err := loadBaseConfig(*configFlag)
	if err != nil {
		return config.Config{}, false, err
	}

	// Merge only the flags the user actually set, so file values survive.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Sources = sources
		case "target":
			cfg.Target = *targetFlag
		case "incremental":
			cfg.Incremental = *incrementalFlag
		case "remote":
			cfg.Remote.Path = *remoteFlag
		case "mysql":
			cfg.Dump.MySQL = *mysqlFlag
		case "dump-compression":
			cfg.Dump.Compression = *dumpCompressionFlag
		case "no-compress":
			cfg.Archive.Enabled = !*noCompressFlag
		case "format":
			cfg.Archive.Format = *formatFlag
		case "password":
			cfg.Archive.Password = *passwordFlag
		case "sync-engine":
			cfg.Sync.Engine = *syncEngineFlag
		case "clean-local-after":
			cfg.Retention.LocalAfterDays = *cleanLocalFlag
		case "clean-remote-after":
			cfg.Retention.RemoteAfterDays = *cleanRemoteFlag
		case "clean-all":
			cfg.Retention.CleanAll = *cleanAllFlag
		case "schedule":
			cfg.Schedule = *scheduleFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		}
	})
	cfg.Runtime.DryRun = *dryRunFlag
	cfg.Runtime.Quiet = *quietFlag

	return cfg, false, nil
}

// loadBaseConfig reads the config file when one is given or present in the
// working directory. A missing default file is fine; a missing explicit
// file is not.
func loadBaseConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.ConfigFileName); err != nil {
		return config.NewDefault(), nil
	}
	return config.Load(config.ConfigFileName)
}

// newEngine wires the pipeline collaborators for the final configuration.
func newEngine(cfg config.Config) (*engine.Engine, error) {
	run := runner.New(cfg.Runtime.DryRun)

	syncEngine, err := pathsync.ParseEngine(cfg.Sync.Engine)
	if err != nil {
		return nil, err
	}
	syncer := pathsync.NewSyncer(syncEngine, run, pathsync.Options{
		ModTimeWindow: time.Duration(cfg.Sync.ModTimeWindowSeconds) * time.Second,
	})

	var archiver patharchive.Archiver
	if cfg.Archive.Enabled {
		format, err := patharchive.ParseFormat(cfg.Archive.Format)
		if err != nil {
			return nil, err
		}
		archiver = patharchive.NewArchiver(format, cfg.Archive.Password, run)
	}

	var dumper engine.Dumper
	if cfg.Dump.MySQL {
		compression := dbdump.None
		if cfg.Dump.Compression != "" {
			compression, err = dbdump.ParseCompression(cfg.Dump.Compression)
			if err != nil {
				return nil, err
			}
		}
		dumper = dbdump.New(compression, cfg.Runtime.DryRun)
	}

	var store engine.Store
	if cfg.Remote.Path != "" {
		store = remote.NewStore(cfg.Remote.Path, run)
	}

	return engine.New(cfg, syncer, archiver, dumper, store), nil
}

// runBackup executes the pipeline once, or on the cron schedule when one is
// configured.
func runBackup(ctx context.Context, cfg config.Config) error {
	if cfg.Target != "" {
		if err := preflight.CheckTargetAccessible(cfg.Target); err != nil {
			return err
		}
		if !cfg.Runtime.DryRun {
			if err := preflight.CheckTargetWritable(cfg.Target); err != nil {
				return err
			}
		}
		preflight.WarnOnLowFreeSpace(cfg.Target)
	}

	backupEngine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		startTime := time.Now()
		if err := backupEngine.Execute(ctx); err != nil {
			return err
		}
		plog.Info(buildinfo.Name+" finished successfully.", "duration", time.Since(startTime).Round(time.Millisecond))
		return nil
	}

	if cfg.Schedule == "" {
		return job(ctx)
	}

	schedule, err := sched.ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}
	plog.Info("Running on schedule", "schedule", cfg.Schedule)
	if err := sched.Run(ctx, schedule, job); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func run(ctx context.Context) error {
	cfg, showVersion, err := parseFlagConfig()
	if err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("%s version %s\n", buildinfo.Name, buildinfo.Version)
		return nil
	}

	plog.SetQuiet(cfg.Runtime.Quiet)
	level, err := plog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	plog.SetLevel(level)

	plog.Info("Starting "+buildinfo.Name, "version", buildinfo.Version, "pid", os.Getpid())

	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return runBackup(ctx, cfg)
}

func main() {
	// Cancel the run context on interrupt so external tools are stopped too.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(buildinfo.Name+" exited with error", "error", err)
		os.Exit(1)
	}
}
