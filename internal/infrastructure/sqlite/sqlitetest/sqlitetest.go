// Package sqlitetest arma stores SQLite temporales ya migrados para tests de integración.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
)

// NewStore abre un store en t.TempDir() con el esquema en la última versión.
// Se cierra al terminar el test.
func NewStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	store, err := sqlite.Open(ctx, sqlite.Config{Path: filepath.Join(t.TempDir(), "estoque.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m, err := sqlite.NewMigrator(store)
	require.NoError(t, err)
	_, err = m.UpTo(ctx, m.Latest())
	require.NoError(t, err)
	return store
}

// SeedProduct inserta un producto activo con los saldos dados.
func SeedProduct(t *testing.T, store *sqlite.Store, name string, canoas, pf int) *entity.Product {
	t.Helper()
	now := time.Now()
	p := &entity.Product{
		Name:      name,
		QtyCanoas: canoas,
		QtyPF:     pf,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, sqlite.NewProductRepository(store.DB()).Create(context.Background(), p))
	return p
}

// Balances saldos actuales (Canoas, PF) leídos del store.
func Balances(t *testing.T, store *sqlite.Store, productID int64) (int, int) {
	t.Helper()
	p, err := sqlite.NewProductRepository(store.DB()).GetByID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.QtyCanoas, p.QtyPF
}
