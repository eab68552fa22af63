package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/calltrack/cache"
	"github.com/jonwraymond/calltrack/config"
	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

// Version is reported to telemetry as the service version.
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Backend    string
	SQLitePath string
	Flush      bool

	// Config is loaded from the environment by the root command before any
	// subcommand runs.
	Config config.Config

	// Store, when set, is used instead of opening the configured backend.
	// Commands never close it.
	Store kv.Store
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the calltrack CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs the CLI with args and returns the process exit code. Errors
// are reported on stderr, or on stdout as a JSON response with --format json.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	out := &OutputFormatter{Format: opts.Format, Writer: stdout, ErrWriter: stderr}
	if out.Format != "json" {
		out.Format = "text"
	}
	_ = out.Error(err)
	return GetExitCode(err)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calltrack",
		Short: "Instrumented cache with call tracking",
		Long: `calltrack stores values under generated keys in Redis, SQLite, or memory,
counts and records every store call, and replays the recorded history.

Settings come from CALLTRACK_* environment variables; flags override them.
The default backend is the SQLite file calltrack.db in the working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return loadConfig(cmd, opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "backing store (sqlite|redis|memory)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite-path", "", "SQLite database file")
	cmd.PersistentFlags().BoolVar(&opts.Flush, "flush", false, "clear the backing store before running")

	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewFlushCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func loadConfig(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.Load(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.SQLitePath != "" {
		cfg.SQLitePath = opts.SQLitePath
	}
	if opts.Flush {
		cfg.Flush = true
	}
	if opts.Verbose {
		cfg.Telemetry.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.Config = cfg
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// session holds the resources one command invocation uses.
type session struct {
	store kv.Store
	mw    *observe.Middleware

	closers []func(context.Context) error
}

// open connects the configured store and telemetry. Telemetry is disabled
// when no service name is configured.
func (o *RootOptions) open(ctx context.Context) (*session, error) {
	s := &session{mw: observe.NopMiddleware()}

	if o.Config.Telemetry.ServiceName != "" {
		obs, err := observe.NewObserver(ctx, o.Config.Observe(Version))
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to start telemetry", err)
		}
		s.closers = append(s.closers, obs.Shutdown)
		mw, err := observe.MiddlewareFromObserver(obs)
		if err != nil {
			_ = s.Close(ctx)
			return nil, WrapExitError(ExitCommandError, "failed to create metrics", err)
		}
		s.mw = mw
	}

	if o.Store != nil {
		s.store = o.Store
		return s, nil
	}
	store, err := config.OpenStore(ctx, o.Config)
	if err != nil {
		_ = s.Close(ctx)
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	s.store = store
	s.closers = append(s.closers, func(context.Context) error { return store.Close() })
	return s, nil
}

func (o *RootOptions) flush() bool {
	return o.Flush || o.Config.Flush
}

// cache builds a tracked cache over the session store.
func (s *session) cache(ctx context.Context, flush bool) (*cache.Cache, error) {
	opts := []cache.Option{cache.WithObserver(s.mw)}
	if flush {
		opts = append(opts, cache.WithFlush())
	}
	c, err := cache.New(ctx, s.store, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create cache", err)
	}
	return c, nil
}

// Close releases the session in reverse order of acquisition.
func (s *session) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
