package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"laplog/internal/config"
	"laplog/internal/log"
	"laplog/internal/services"
)

// RootOptions holds global flags for all commands and the state the root
// command prepares before a subcommand runs.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Backend string
	DataDir string
	DBPath  string
	Key     string

	cfg    *config.Config
	logger *log.Logger
	now    func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the laplog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(now func() time.Time) *cobra.Command {
	opts := &RootOptions{now: now}

	cmd := &cobra.Command{
		Use:   "laplog",
		Short: "laplog - lap based exercise log",
		Long: `Record walks and runs counted in laps and review them by month.

A field lap is 120 m and a gym lap is 50 m. Records are kept per owner,
date and activity; saving the same day and activity again replaces it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.prepare(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Backend, "backend", "", "record backend (memory|file|sqlite|sheets), overrides DATA_BACKEND")
	flags.StringVar(&opts.DataDir, "data-dir", "", "file backend directory, overrides DATA_DIR")
	flags.StringVar(&opts.DBPath, "db", "", "sqlite database path, overrides SQLITE_DB_PATH")
	flags.StringVar(&opts.Key, "key", "", "blob key the records live under, overrides STORE_KEY")

	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewMonthCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewOwnersCommand(opts))

	return cmd
}

// prepare loads the environment configuration, applies flag overrides and
// builds a logger that writes to stderr so it never mixes with command output.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.DataBackend = o.Backend
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("db") {
		cfg.SQLiteDBPath = o.DBPath
	}
	if flags.Changed("key") {
		cfg.StoreKey = o.Key
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	// Only warnings reach the terminal unless --verbose is given.
	level := slog.LevelWarn
	if o.Verbose {
		level = log.ParseLevel(cfg.LogLevel)
	}
	o.logger = log.New(log.Config{
		Level:     level,
		Component: log.ComponentCLI,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		Output:    cmd.ErrOrStderr(),
	})
	o.cfg = cfg
	return nil
}

// formatter returns the output formatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openService opens the record store and wires the optional publisher. The
// returned function releases everything it opened.
func (o *RootOptions) openService(ctx context.Context) (*services.RecordService, func(), error) {
	st, res, err := OpenStore(ctx, o.cfg, o.logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, nil, err
	}

	svcOpts := []services.Option{
		services.WithLogger(o.logger.WithComponent(log.ComponentRecords)),
		services.WithClock(o.now),
	}
	// A missing broker must not block local edits; the worker resyncs on its
	// next tick.
	pub, err := ConnectPublisher(ctx, o.cfg, o.logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		o.logger.WarnContext(ctx, "Continuing without change notifications", log.FieldError, err)
	} else if pub != nil {
		svcOpts = append(svcOpts, services.WithPublisher(pub))
	}

	svc := services.NewRecordService(st, svcOpts...)
	closeAll := func() {
		if err := svc.Close(); err != nil {
			o.logger.WarnContext(ctx, "Closing record service", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			o.logger.WarnContext(ctx, "Closing backend", log.FieldError, err)
		}
	}
	return svc, closeAll, nil
}
