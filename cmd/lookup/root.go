package main

import (
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/lookup/internal/paths"
	"github.com/mesh-intelligence/lookup/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds global flag values and the state shared by subcommands.
type app struct {
	configDir   string
	dataDir     string
	databaseURL string
	schemaFile  string
	fixturesDir string
	metricsFile string
	verbose     bool

	stdout io.Writer
	stderr io.Writer

	cfg      *viper.Viper
	logger   *zap.Logger
	registry *prometheus.Registry
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "lookup",
		Short: "Record lookups over a SQLite store",
		Long: `lookup defines tables from YAML schemas, loads JSONL fixtures, and
resolves records by identifier (find), by first match (find-by), or by
exactly one match (find-sole-by).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $LOOKUP_CONFIG_DIR)")
	pf.StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.lookup-db, or $LOOKUP_DATA_DIR)")
	pf.StringVar(&a.databaseURL, "database-url", "", "database URL, e.g. sqlite3::memory: (overrides data dir and $DATABASE_URL)")
	pf.StringVar(&a.schemaFile, "schema", "", "YAML schema file to define before running the command")
	pf.StringVar(&a.fixturesDir, "fixtures", "", "directory of <table>.jsonl files seeded into empty tables")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log SQL statements")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newSchemaCmd(a),
		newLoadCmd(a),
		newDumpCmd(a),
		newFindCmd(a),
		newFindByCmd(a, "find-by"),
		newFindByCmd(a, "find-sole-by"),
		newCheckCmd(a),
		newRenderCmd(a),
	)
	return root
}

// setup loads config.yaml and builds the logger and metrics registry.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.GetString(cfgKeyLogLevel), a.verbose, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	return nil
}

// close flushes the logger and writes metrics when requested.
func (a *app) close() {
	if a.registry != nil && a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil && a.logger != nil {
			a.logger.Warn("writing metrics", zap.String("path", a.metricsFile), zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// resolveDataDir follows --data-dir > config.yaml data_dir > LOOKUP_DATA_DIR
// > $(CWD)/.lookup-db.
func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.dataDir, a.cfg.GetString(cfgKeyDataDir))
}

// usageError marks errors caused by bad command input.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCode maps an error to a process exit code. Lookup outcomes and bad
// input are user errors; everything else is a system error.
func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, errChecksFailed),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidArgument),
		errors.Is(err, types.ErrTooManyResults),
		errors.Is(err, types.ErrTableNotFound),
		errors.Is(err, types.ErrUnknownColumn),
		errors.Is(err, types.ErrInvalidSchema),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrDatabaseURLInvalid),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrBackendEmpty):
		return exitUserError
	default:
		return exitSysError
	}
}
