package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite/sqlitetest"
)

func openEmpty(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "estoque.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// ──────────────────────────────────────────────────────────────────────────────
// Migrador
// ──────────────────────────────────────────────────────────────────────────────

func TestMigrator_StepByStep(t *testing.T) {
	store := openEmpty(t)
	ctx := context.Background()
	m, err := sqlite.NewMigrator(store)
	require.NoError(t, err)
	assert.Equal(t, sqlite.LatestSchemaVersion, m.Latest())

	v, err := m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, v, "base nueva sin tabla de versiones")

	pending, err := m.Pending(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, pending)

	applied, err := m.UpTo(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, applied)

	v, err = m.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	pending, err = m.Pending(ctx, m.Latest())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, pending)

	applied, err = m.UpTo(ctx, m.Latest())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, applied)

	pending, err = m.Pending(ctx, m.Latest())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────────────────────────────────

func TestSnapshotStore_Validate(t *testing.T) {
	store := sqlitetest.NewStore(t)
	snaps := sqlite.NewSnapshotStore(store)
	ctx := context.Background()
	dir := t.TempDir()

	live, err := snaps.Validate(ctx, "")
	require.NoError(t, err)
	assert.True(t, live.OK, live.Detail)

	missing, err := snaps.Validate(ctx, filepath.Join(dir, "nada.db"))
	require.NoError(t, err)
	assert.False(t, missing.OK)
	assert.Equal(t, "archivo inexistente", missing.Detail)

	garbage := filepath.Join(dir, "lixo.db")
	require.NoError(t, os.WriteFile(garbage, []byte("isto não é um banco sqlite, só texto repetido várias vezes"), 0o644))
	bad, err := snaps.Validate(ctx, garbage)
	require.NoError(t, err)
	assert.False(t, bad.OK)
	assert.NotEmpty(t, bad.Detail)
}

func TestSnapshotStore_HotCopyAndCount(t *testing.T) {
	store := sqlitetest.NewStore(t)
	snaps := sqlite.NewSnapshotStore(store)
	ctx := context.Background()
	sqlitetest.SeedProduct(t, store, "A", 1, 0)
	sqlitetest.SeedProduct(t, store, "B", 0, 1)

	path := filepath.Join(t.TempDir(), "copia.db")
	require.NoError(t, snaps.HotCopyTo(ctx, path))

	rep, err := snaps.Validate(ctx, path)
	require.NoError(t, err)
	assert.True(t, rep.OK, rep.Detail)

	n, err := snaps.CountProducts(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSnapshotStore_MissingTables(t *testing.T) {
	snaps := sqlite.NewSnapshotStore(sqlitetest.NewStore(t))
	path := writeLegacyDB(t, `CREATE TABLE products (id INTEGER PRIMARY KEY);`)

	rep, err := snaps.Validate(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, rep.OK)
	assert.Contains(t, rep.Detail, "movements")

	integrity, err := snaps.CheckIntegrity(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, integrity.OK)
}
