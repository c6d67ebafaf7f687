package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/auth"
	"bilancio/internal/backend"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/storage/memory"
)

const testSecret = "cli-test-secret-0123456789"

func testConfig() *config.Config {
	return &config.Config{
		DataBackend:            config.BackendMemory,
		JWTSecret:              testSecret,
		MaterializeConcurrency: 2,
		YieldCacheTTL:          time.Hour,
		YieldCacheSize:         4,
	}
}

// sharedApp keeps one memory store across command invocations.
func sharedApp(t *testing.T) (*RootOptions, *App) {
	t.Helper()
	cfg := testConfig()
	app := newApp(cfg, &backend.BackendResult{Store: memory.New()}, log.Discard())
	opts := &RootOptions{
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
		OpenApp:    func(context.Context, *config.Config) (*App, error) { return app, nil },
	}
	return opts, app
}

func seedRent(t *testing.T, app *App, user string) core.RecurringRule {
	t.Helper()
	ctx := context.Background()
	cats, err := app.Taxonomy.ListCategories(ctx, user)
	require.NoError(t, err)
	methods, err := app.Taxonomy.ListPaymentMethods(ctx, user)
	require.NoError(t, err)

	var casa string
	for _, c := range cats {
		if c.Name == "Casa" {
			casa = c.ID
		}
	}
	rule, err := app.Rules.Create(ctx, user, core.RecurringRule{
		Kind:            core.Expense,
		Amount:          core.Money{Cents: 75000},
		CategoryID:      casa,
		PaymentMethodID: methods[0].ID,
		Description:     "Affitto",
		AnchorDay:       31,
		StartMonth:      core.MustParseMonth("2025-01"),
	})
	require.NoError(t, err)
	return rule
}

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestMaterializeCommandJSON(t *testing.T) {
	opts, app := sharedApp(t)
	seedRent(t, app, "u-1")

	out, err := run(t, opts, "materialize", "--user", "u-1", "--month", "2025-02", "--format", "json")
	require.NoError(t, err)
	var first materializeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "2025-02", first.Month)
	assert.Len(t, first.Created, 1)
	assert.Equal(t, 1, first.Evaluated)

	out, err = run(t, opts, "materialize", "--user", "u-1", "--month", "2025-02", "--format", "json")
	require.NoError(t, err)
	var second materializeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.Skipped)
}

func TestMaterializeCommandText(t *testing.T) {
	opts, app := sharedApp(t)
	seedRent(t, app, "u-1")

	out, err := run(t, opts, "materialize", "--user", "u-1", "--month", "2025-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Month 2025-02: 1 created, 0 skipped")
	assert.Contains(t, out, "2025-02-28  750.00  pending  Affitto")
}

func TestMaterializeCommandFlagErrors(t *testing.T) {
	opts, _ := sharedApp(t)

	tests := []struct {
		name     string
		args     []string
		code     int
		contains string
	}{
		{"missing user", []string{"materialize", "--month", "2025-02"}, ExitFailure, "user"},
		{"bad month", []string{"materialize", "--user", "u-1", "--month", "2025-2"}, ExitCommandError, "invalid --month"},
		{"bad format", []string{"materialize", "--user", "u-1", "--format", "yaml"}, ExitCommandError, "invalid format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, opts, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestSummaryCommand(t *testing.T) {
	opts, app := sharedApp(t)
	seedRent(t, app, "u-1")

	out, err := run(t, opts, "summary", "--user", "u-1", "--month", "2025-03", "--format", "json")
	require.NoError(t, err)
	var sum summaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, "750.00", sum.Expense)
	assert.Equal(t, "750.00", sum.PendingExpense)
	assert.Equal(t, "-750.00", sum.Balance)
	assert.Equal(t, 1, sum.Transactions)

	out, err = run(t, opts, "summary", "--user", "u-1", "--month", "2025-03")
	require.NoError(t, err)
	assert.Contains(t, out, "Month 2025-03 (1 transactions)")
	assert.Contains(t, out, "Casa")
}

func TestTokenCommand(t *testing.T) {
	opts, _ := sharedApp(t)

	out, err := run(t, opts, "token", "--user", "u-9", "--ttl", "1h")
	require.NoError(t, err)

	user, err := auth.NewVerifier([]byte(testSecret), nil).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-9", user)

	_, err = run(t, opts, "token", "--user", "u-9", "--ttl", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrateCommandSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.DataBackend = config.BackendSQLite
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "cli.db")
	opts := &RootOptions{LoadConfig: func() (*config.Config, error) { return cfg, nil }}

	out, err := run(t, opts, "migrate", "--format", "json")
	require.NoError(t, err)
	var got struct {
		Backend string `json:"backend"`
		Version uint   `json:"version"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "sqlite", got.Backend)
	assert.NotZero(t, got.Version)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "x", assert.AnError)))
}
