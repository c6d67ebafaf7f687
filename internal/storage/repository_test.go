package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
	"bilancio/internal/ports"
	"bilancio/internal/storage/storetest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "bilancio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return newTestRepository(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bilancio.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	// reopening runs Up again with nothing to do
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ping(context.Background()))
}

func TestGetMissingRowIsNotFound(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetTransaction(ctx, "u", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetCategory(ctx, "u", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateRule(ctx, core.RecurringRule{ID: "missing", UserID: "u", StartMonth: core.MustParseMonth("2025-01")}), core.ErrNotFound)
}

func TestSplitsRoundTrip(t *testing.T) {
	in := []core.Split{
		{CategoryID: "a", Amount: core.Money{Cents: 100}},
		{CategoryID: "b", Amount: core.Money{Cents: 250}},
	}
	enc, err := encodeSplits(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"category_id":"a","amount_cents":100},{"category_id":"b","amount_cents":250}]`, enc)

	out, err := decodeSplits(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := decodeSplits("[]")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
