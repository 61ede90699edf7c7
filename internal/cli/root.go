package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nestq"
	"github.com/roach88/nestq/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	EnvPath    string
	Backend    string
	DSN        string
	Namespace  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nestq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nestq",
		Short: "nestq - nested record queue",
		Long: `Inspect and edit a persisted nested record queue.

Settings come from --config, then .env, then NESTQ_* variables, then
the --backend, --dsn and --namespace flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, CodeInput,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	flags.StringVar(&opts.EnvPath, "env-file", "", ".env file (default ./.env when present)")
	flags.StringVar(&opts.Backend, "backend", "", "persistence backend (memory|sqlite|badger|postgres)")
	flags.StringVar(&opts.DSN, "dsn", "", "database file, directory or connection string")
	flags.StringVar(&opts.Namespace, "namespace", "", "state namespace inside the backend")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSortCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// Execute runs the root command with args and reports a failure on stderr in
// the selected format. It returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !slices.Contains(ValidFormats, format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stderr}
	f.Error(errorCode(err), err.Error(), nil)
	return GetExitCode(err)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout(), Verbose: o.Verbose}
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves settings and applies the flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath, o.EnvPath)
	if err != nil {
		return nil, err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
	}
	if o.Namespace != "" {
		cfg.Namespace = o.Namespace
	}
	return cfg, cfg.Validate()
}

// withQueue opens the configured queue, runs fn and closes the queue,
// flushing anything fn left buffered.
func (o *RootOptions) withQueue(cmd *cobra.Command, fn func(ctx context.Context, q *nestq.Queue) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, CodeConfig, "invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := nestq.Open(ctx, cfg, nestq.WithLogger(o.logger(cmd)))
	if err != nil {
		return WrapExitError(ExitCommandError, CodeConfig, "failed to open queue", err)
	}

	runErr := fn(ctx, q)
	if err := q.Close(ctx); err != nil && runErr == nil {
		runErr = WrapExitError(ExitFailure, CodeQueue, "failed to close queue", err)
	}
	return runErr
}
