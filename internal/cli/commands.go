package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/core"
)

const defaultTokenTTL = 24 * time.Hour

type monthFlags struct {
	user  string
	month string
}

func (f *monthFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "user id (required)")
	cmd.Flags().StringVar(&f.month, "month", "", "month as YYYY-MM (default: current month)")
	_ = cmd.MarkFlagRequired("user")
}

func (f *monthFlags) resolve(now time.Time) (core.Month, error) {
	if f.month == "" {
		return core.CurrentMonth(now), nil
	}
	m, err := core.ParseMonth(f.month)
	if err != nil {
		return core.Month{}, WrapExitError(ExitCommandError, "invalid --month", err)
	}
	return m, nil
}

type materializeOutput struct {
	Month     string   `json:"month"`
	Created   []string `json:"created"`
	Skipped   int      `json:"skipped"`
	Evaluated int      `json:"evaluated"`
}

// NewMaterializeCommand creates the materialize command.
func NewMaterializeCommand(opts *RootOptions) *cobra.Command {
	flags := &monthFlags{}
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Create the month's transactions from recurring rules",
		Long: `Materialize the recurring rules of a user for one month.

Running it again for the same month creates nothing new.

Example:
  bilancio-cli materialize --user u-42 --month 2025-06
  bilancio-cli materialize --user u-42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := flags.resolve(time.Now())
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				res, err := app.Engine.MaterializeMonth(ctx, flags.user, month)
				if err != nil {
					return WrapExitError(ExitFailure, "materialization failed", err)
				}
				out := materializeOutput{
					Month:     res.Month.String(),
					Created:   make([]string, 0, len(res.Created)),
					Skipped:   res.Skipped,
					Evaluated: res.Evaluated,
				}
				for _, t := range res.Created {
					out.Created = append(out.Created, t.ID)
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Month %s: %d created, %d skipped, %d rules evaluated\n",
					out.Month, len(res.Created), out.Skipped, out.Evaluated)
				for _, t := range res.Created {
					fmt.Fprintf(w, "  + %s  %s  %s  %s\n", t.DueDate.Format("2006-01-02"), t.Amount, t.Status, t.Description)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

type summaryOutput struct {
	Month          string `json:"month"`
	Income         string `json:"income"`
	Expense        string `json:"expense"`
	PaidExpense    string `json:"paid_expense"`
	PendingExpense string `json:"pending_expense"`
	Balance        string `json:"balance"`
	Transactions   int    `json:"transactions"`
}

// NewSummaryCommand creates the summary command. Like the dashboard it
// materializes the month first.
func NewSummaryCommand(opts *RootOptions) *cobra.Command {
	flags := &monthFlags{}
	cmd := &cobra.Command{
		Use:           "summary",
		Short:         "Print the month summary of a user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := flags.resolve(time.Now())
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				sum, err := app.Summary.MonthSummary(ctx, flags.user, month)
				if err != nil {
					return WrapExitError(ExitFailure, "summary failed", err)
				}
				out := summaryOutput{
					Month:          sum.Month.String(),
					Income:         sum.Income.String(),
					Expense:        sum.Expense.String(),
					PaidExpense:    sum.PaidExpense.String(),
					PendingExpense: sum.PendingExpense.String(),
					Balance:        sum.Balance().String(),
					Transactions:   sum.Transactions,
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Month %s (%d transactions)\n", out.Month, out.Transactions)
				fmt.Fprintf(w, "  income   %10s\n", out.Income)
				fmt.Fprintf(w, "  expense  %10s (paid %s, pending %s)\n", out.Expense, out.PaidExpense, out.PendingExpense)
				fmt.Fprintf(w, "  balance  %10s\n", out.Balance)
				for _, ca := range sum.ByCategory {
					fmt.Fprintf(w, "    %-20s %10s\n", ca.Name, ca.Amount)
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// NewTokenCommand issues a bearer token signed with JWT_SECRET.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Issue a development API token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return NewExitError(ExitCommandError, "--ttl must be positive")
			}
			cfg, err := opts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			token, err := auth.IssueToken([]byte(cfg.JWTSecret), user, ttl, time.Now())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to sign token", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"user_id": user, "token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id placed in the token subject (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// NewMigrateCommand applies pending schema migrations.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply database migrations for the configured backend",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid backend", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			version, err := backend.Migrate(ctx, bcfg)
			if err != nil {
				return WrapExitError(ExitFailure, "migration failed", err)
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"backend": bcfg.Type.String(), "version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", bcfg.Type, version)
			return nil
		},
	}
}
