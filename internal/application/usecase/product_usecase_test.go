package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite/sqlitetest"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

func newProductUC(store *sqlite.Store) *usecase.ProductUseCase {
	db := store.DB()
	return usecase.NewProductUseCase(sqlite.NewTxRunner(db), sqlite.NewProductRepository(db), nil).
		WithClock(func() time.Time { return now })
}

func history(t *testing.T, store *sqlite.Store) []*entity.HistoryEntry {
	t.Helper()
	list, _, err := sqlite.NewHistoryRepository(store.DB()).List(context.Background(), 100, 0)
	require.NoError(t, err)
	return list
}

func ptr[T any](v T) *T { return &v }

// ─────────────────────────────────────────────────────────────
//  Registro
// ─────────────────────────────────────────────────────────────

func TestRegister_NormalizesNameAndLogsHistory(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newProductUC(store)

	p, err := uc.Register(context.Background(), dto.CreateProductRequest{Name: "  caneta azul ção ", QtyCanoas: 3, QtyPF: 2, Note: " gaveta 2 "})
	require.NoError(t, err)
	assert.Equal(t, "CANETA AZUL ÇÃO", p.Name)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, "gaveta 2", p.Note)
	assert.True(t, p.Active)

	h := history(t, store)
	require.Len(t, h, 1)
	assert.Equal(t, entity.HistoryOpRegister, h[0].Operation)
	assert.Equal(t, 5, h[0].Quantity)
}

func TestRegister_Validation(t *testing.T) {
	uc := newProductUC(sqlitetest.NewStore(t))
	ctx := context.Background()

	_, err := uc.Register(ctx, dto.CreateProductRequest{Name: "   "})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	_, err = uc.Register(ctx, dto.CreateProductRequest{Name: "x", QtyPF: -1})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

// ─────────────────────────────────────────────────────────────
//  Edición
// ─────────────────────────────────────────────────────────────

func TestUpdate_PartialFields(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newProductUC(store)
	ctx := context.Background()
	p := sqlitetest.SeedProduct(t, store, "LAPIS", 1, 1)

	got, err := uc.Update(ctx, p.ID, dto.UpdateProductRequest{Name: ptr("lápis preto"), QtyPF: ptr(9)})
	require.NoError(t, err)
	assert.Equal(t, "LÁPIS PRETO", got.Name)
	assert.Equal(t, 1, got.QtyCanoas)
	assert.Equal(t, 9, got.QtyPF)

	h := history(t, store)
	require.Len(t, h, 1)
	assert.Equal(t, entity.HistoryOpEdit, h[0].Operation)
	assert.Contains(t, h[0].Note, "Passo Fundo: 1 -> 9")

	_, err = uc.Update(ctx, p.ID, dto.UpdateProductRequest{QtyCanoas: ptr(-2)})
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	_, err = uc.Update(ctx, 999, dto.UpdateProductRequest{Note: ptr("x")})
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

// ─────────────────────────────────────────────────────────────
//  Activación
// ─────────────────────────────────────────────────────────────

func TestSetActive_OnlyChangedProductsAreLogged(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newProductUC(store)
	ctx := context.Background()
	a := sqlitetest.SeedProduct(t, store, "A", 1, 0)
	b := sqlitetest.SeedProduct(t, store, "B", 1, 0)

	res, err := uc.SetActive(ctx, dto.SetProductStatusRequest{IDs: []int64{a.ID}, Active: ptr(false), Reason: "fora de linha"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	res, err = uc.SetActive(ctx, dto.SetProductStatusRequest{IDs: []int64{a.ID, b.ID, b.ID}, Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated, "A ya estaba inactivo")

	got, err := uc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "fora de linha", got.DeactivationReason)

	deactivations := 0
	for _, h := range history(t, store) {
		if h.Operation == entity.HistoryOpDeactivate {
			deactivations++
		}
	}
	assert.Equal(t, 2, deactivations)

	list, err := uc.List(ctx, dto.ProductListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	list, err = uc.List(ctx, dto.ProductListRequest{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Page.Total)

	_, err = uc.SetActive(ctx, dto.SetProductStatusRequest{IDs: []int64{a.ID, 404}, Active: ptr(true)})
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	got, err = uc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active, "el lote con un id inexistente no aplica nada")
}

// ─────────────────────────────────────────────────────────────
//  Borrado
// ─────────────────────────────────────────────────────────────

func TestDelete_RefusesProductWithMovements(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newProductUC(store)
	ctx := context.Background()
	db := store.DB()
	moved := sqlitetest.SeedProduct(t, store, "Movido", 2, 0)
	clean := sqlitetest.SeedProduct(t, store, "Limpo", 0, 0)

	movements := inventory.NewMovementUseCase(sqlite.NewTxRunner(db), sqlite.NewProductRepository(db), sqlite.NewMovementRepository(db), nil, nil)
	_, err := movements.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: moved.ID, Quantity: 1, Origin: "CANOAS"})
	require.NoError(t, err)

	err = uc.Delete(ctx, moved.ID)
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	require.NoError(t, uc.Delete(ctx, clean.ID))
	_, err = uc.GetByID(ctx, clean.ID)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(uc.Delete(ctx, clean.ID)))
}

func TestList_SearchAndPaging(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newProductUC(store)
	ctx := context.Background()
	for _, n := range []string{"CABO USB", "CABO HDMI", "MOUSE"} {
		sqlitetest.SeedProduct(t, store, n, 1, 1)
	}

	list, err := uc.List(ctx, dto.ProductListRequest{Query: "cabo", PageRequest: dto.PageRequest{Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Page.Total)
	assert.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Limit)
}
