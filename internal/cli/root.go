package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"bilancio/internal/config"
	"bilancio/internal/log"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags and the hooks commands use to reach the
// application. Tests replace LoadConfig and OpenApp.
type RootOptions struct {
	Format string

	LoadConfig func() (*config.Config, error)
	OpenApp    func(ctx context.Context, cfg *config.Config) (*App, error)
}

// DefaultRootOptions reads .env and the environment and opens the
// configured backend.
func DefaultRootOptions() *RootOptions {
	return &RootOptions{
		LoadConfig: func() (*config.Config, error) {
			LoadEnvFile()
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		},
		OpenApp: func(ctx context.Context, cfg *config.Config) (*App, error) {
			// stdout carries command output
			logger := setupLogger(cfg.LogLevel, os.Stderr).WithComponent(log.ComponentCLI)
			return NewApp(ctx, cfg, logger)
		},
	}
}

// NewRootCommand creates the root command of the admin CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bilancio-cli",
		Short: "Administer bilancio data",
		Long:  "Materialize recurring transactions, inspect month summaries and manage the schema.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMaterializeCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	return cmd
}

// withApp loads the configuration, opens the app, runs fn and closes it.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := o.LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := o.OpenApp(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open backend", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			app.Logger.Error("Failed to close backend", log.FieldError, closeErr)
		}
	}()
	return fn(ctx, app)
}
