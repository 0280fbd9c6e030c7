package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/normativ/internal/config"
	"github.com/roach88/normativ/internal/engine"
	"github.com/roach88/normativ/internal/store"
)

// RootOptions holds global flags for all commands and the state resolved
// from them before a command runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	Driver     string

	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *engine.Metrics

	// RequestIDs overrides the engine's request id generator.
	RequestIDs engine.RequestIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the normativ CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normativ",
		Short: "normativ - sport rank normatives",
		Long: `Compose and maintain sport rank normatives.

A normative is the qualifying threshold for one rank under one exact
combination of discipline parameters. normativ seeds the reference catalog,
attaches conditions to normatives, and reports on them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeMetrics()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: ./normativ.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database DSN: SQLite path or Postgres URL (default: normativ.db)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|pgx)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewComposeCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup resolves configuration, logging and metrics for the command.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath, cmd.Flags())
	if err != nil {
		f := o.formatter(cmd)
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	o.Config = cfg

	o.Logger = cfg.Logger(cmd.ErrOrStderr(), o.Verbose)
	slog.SetDefault(o.Logger)

	o.Registry = prometheus.NewRegistry()
	o.Metrics = engine.NewMetrics(o.Registry)
	return nil
}

// writeMetrics exports the registry when a textfile is configured.
func (o *RootOptions) writeMetrics() error {
	if o.Config == nil || o.Config.Metrics.Textfile == "" || o.Registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(o.Config.Metrics.Textfile, o.Registry); err != nil {
		o.Logger.Error("writing metrics textfile", "path", o.Config.Metrics.Textfile, "error", err)
		return WrapExitError(ExitCommandError, "failed to write metrics textfile", err)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database. The caller closes it.
func (o *RootOptions) openStore(cmd *cobra.Command, f *OutputFormatter) (*store.Store, error) {
	o.Logger.Debug("opening database", "driver", o.Config.Database.Driver, "dsn", o.Config.Database.DSN)
	st, err := o.Config.OpenStore(cmd.Context())
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	return st, nil
}

func (o *RootOptions) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		o.Logger.Error("error closing database", "error", err)
	}
}

// newEngine builds an engine from the configuration.
func (o *RootOptions) newEngine(st *store.Store) *engine.Engine {
	opts := append(o.Config.EngineOptions(),
		engine.WithLogger(o.Logger),
		engine.WithMetrics(o.Metrics),
	)
	if o.RequestIDs != nil {
		opts = append(opts, engine.WithRequestIDGenerator(o.RequestIDs))
	}
	return engine.New(st, opts...)
}
