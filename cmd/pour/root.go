package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/kyrylokulyhin/pour/internal/formula"
	"github.com/kyrylokulyhin/pour/internal/installer"
	"github.com/kyrylokulyhin/pour/internal/platform"
	"github.com/kyrylokulyhin/pour/internal/tap"
)

const (
	defaultPrefix   = "~/.local/bin"
	defaultStateDir = "~/.local/state/pour"
	defaultCacheDir = "~/.cache/pour"
	defaultLogLevel = "warn"
)

// options are the global flags shared by every command.
type options struct {
	prefix   string
	stateDir string
	cacheDir string
	logLevel string
	tapURL   string
	target   string
	quiet    bool
}

// app is the state of one CLI invocation.
type app struct {
	opts   options
	stdout io.Writer
	stderr io.Writer
	logger hclog.Logger
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "pour",
		Short: "Install prebuilt release binaries from package descriptors",
		Long: `pour installs a single prebuilt binary described by a package descriptor
(Lua, YAML or JSON). The release archive is downloaded, checked against the
descriptor's SHA-256 digest, unpacked into the prefix and smoke-tested.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("pour {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.prefix, "prefix", envOr("POUR_PREFIX", defaultPrefix), "directory binaries are installed into (env POUR_PREFIX)")
	flags.StringVar(&a.opts.stateDir, "state-dir", envOr("POUR_STATE_DIR", defaultStateDir), "directory for receipts, taps and the lock (env POUR_STATE_DIR)")
	flags.StringVar(&a.opts.cacheDir, "cache-dir", envOr("POUR_CACHE_DIR", defaultCacheDir), "download cache directory, empty to disable (env POUR_CACHE_DIR)")
	flags.StringVar(&a.opts.logLevel, "log-level", envOr("POUR_LOG_LEVEL", defaultLogLevel), "log level: trace, debug, info, warn, error, off (env POUR_LOG_LEVEL)")
	flags.StringVar(&a.opts.tapURL, "tap", "", "tap repository URL or directory to look descriptors up in")
	flags.StringVar(&a.opts.target, "target", "", "install for this target triple instead of the host")
	flags.BoolVarP(&a.opts.quiet, "quiet", "q", false, "only print errors")

	root.AddCommand(
		newInstallCommand(a),
		newTestCommand(a),
		newFetchCommand(a),
		newInfoCommand(a),
		newListCommand(a),
		newUninstallCommand(a),
		newUpdateCommand(a),
	)

	return root
}

// setup expands the directory flags and creates the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	for _, p := range []*string{&a.opts.prefix, &a.opts.stateDir, &a.opts.cacheDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = expanded
	}

	level := hclog.LevelFromString(a.opts.logLevel)
	if level == hclog.NoLevel {
		return fmt.Errorf("invalid log level %q", a.opts.logLevel)
	}
	if a.opts.quiet && level < hclog.Error {
		level = hclog.Error
	}

	a.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "pour",
		Level:  level,
		Output: a.stderr,
	})
	return nil
}

func (a *app) detector() (platform.Detector, error) {
	if a.opts.target == "" {
		return platform.NewDetector(), nil
	}
	info, err := platform.ParseTarget(a.opts.target)
	if err != nil {
		return nil, err
	}
	return platform.StaticDetector{Info: info}, nil
}

func (a *app) newInstaller() (*installer.Installer, error) {
	detector, err := a.detector()
	if err != nil {
		return nil, err
	}

	var progress io.Writer
	if !a.opts.quiet {
		progress = a.stderr
	}

	return installer.New(installer.Config{
		Prefix:   a.opts.prefix,
		StateDir: a.opts.stateDir,
		CacheDir: a.opts.cacheDir,
		Detector: detector,
		Progress: progress,
		Logger:   a.logger,
	})
}

func (a *app) tapsDir() string {
	return filepath.Join(a.opts.stateDir, "taps")
}

// loadDescriptor loads ref as a descriptor file, or as a formula name in
// the --tap repository.
func (a *app) loadDescriptor(ctx context.Context, ref string) (formula.Descriptor, error) {
	detector, err := a.detector()
	if err != nil {
		return formula.Descriptor{}, err
	}
	loader := formula.NewLoader(detector).WithLogger(a.logger)

	path := ref
	if a.opts.tapURL != "" {
		t, err := tap.OpenOrClone(ctx, a.opts.tapURL, a.tapsDir())
		if err != nil {
			return formula.Descriptor{}, err
		}
		if path, err = t.Find(ref); err != nil {
			return formula.Descriptor{}, err
		}
	} else if _, err := os.Stat(ref); os.IsNotExist(err) {
		return formula.Descriptor{}, fmt.Errorf("descriptor %s not found (pass a descriptor file, or a name with --tap)", ref)
	}

	a.logger.Debug("loading descriptor", "path", path)
	return loader.LoadFile(ctx, path)
}

func (a *app) printf(format string, args ...interface{}) {
	if a.opts.quiet {
		return
	}
	fmt.Fprintf(a.stdout, format, args...)
}
