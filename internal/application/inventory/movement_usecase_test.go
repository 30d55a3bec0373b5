package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite/sqlitetest"
)

// ─────────────────────────────────────────────────────────────
//  Helpers
// ─────────────────────────────────────────────────────────────

var fixedNow = time.Date(2025, 3, 10, 14, 30, 0, 0, time.Local)

func newMovementUC(store *sqlite.Store) *inventory.MovementUseCase {
	db := store.DB()
	return inventory.NewMovementUseCase(
		sqlite.NewTxRunner(db),
		sqlite.NewProductRepository(db),
		sqlite.NewMovementRepository(db),
		nil, nil,
	).WithClock(func() time.Time { return fixedNow })
}

func historyCount(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	_, total, err := sqlite.NewHistoryRepository(store.DB()).List(context.Background(), 1, 0)
	require.NoError(t, err)
	return total
}

func movementCount(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	_, total, err := sqlite.NewMovementRepository(store.DB()).List(context.Background(), entity.MovementFilter{Limit: 1})
	require.NoError(t, err)
	return total
}

// ─────────────────────────────────────────────────────────────
//  Deltas por tipo
// ─────────────────────────────────────────────────────────────

func TestCreateMovement_TransferMovesBalance(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Parafuso", 5, 0)

	m, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
		Type:        "TRANSFER",
		ProductID:   p.ID,
		Quantity:    2,
		Origin:      "CANOAS",
		Destination: "PF",
	})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, entity.NatureNormal, m.Nature)
	assert.Equal(t, "Parafuso", m.ProductName)

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 3, canoas)
	assert.Equal(t, 2, pf)
	assert.Equal(t, 1, historyCount(t, store))
}

func TestCreateMovement_EntryAndExit(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Porca", 0, 4)
	ctx := context.Background()

	_, err := uc.CreateMovement(ctx, inventory.MovementInput{Type: "ENTRY", ProductID: p.ID, Quantity: 7, Destination: "canoas"})
	require.NoError(t, err)
	_, err = uc.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: p.ID, Quantity: 4, Origin: "PF"})
	require.NoError(t, err)

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 7, canoas)
	assert.Equal(t, 0, pf, "la salida puede dejar el saldo exactamente en cero")
}

func TestCreateMovement_EntryIgnoresOrigin(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Arruela", 1, 1)

	m, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
		Type: "ENTRY", ProductID: p.ID, Quantity: 1, Origin: "PF", Destination: "PF",
	})
	require.NoError(t, err)
	assert.Empty(t, m.Origin)

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 1, canoas)
	assert.Equal(t, 2, pf)
}

// ─────────────────────────────────────────────────────────────
//  Saldo insuficiente
// ─────────────────────────────────────────────────────────────

func TestCreateMovement_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Cabo", 1, 0)

	_, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
		Type: "EXIT", ProductID: p.ID, Quantity: 2, Origin: "CANOAS",
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeInsufficientBalance, domain.CodeOf(err))

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 1, canoas)
	assert.Equal(t, 0, pf)
	assert.Equal(t, 0, historyCount(t, store))
	assert.Equal(t, 0, movementCount(t, store))
}

func TestCreateMovement_TransferShortfallAtOrigin(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Fita", 0, 3)

	_, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
		Type: "TRANSFER", ProductID: p.ID, Quantity: 1, Origin: "CANOAS", Destination: "PF",
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeInsufficientBalance, domain.CodeOf(err))
	assert.Contains(t, domain.PublicMessage(err), "Canoas")
}

// ─────────────────────────────────────────────────────────────
//  Devoluciones
// ─────────────────────────────────────────────────────────────

func TestCreateMovement_ReturnCap(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Luva", 10, 0)
	ctx := context.Background()

	exit, err := uc.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: p.ID, Quantity: 5, Origin: "CANOAS"})
	require.NoError(t, err)

	ref := exit.ID
	_, err = uc.CreateMovement(ctx, inventory.MovementInput{
		Type: "ENTRY", Nature: "RETURN", ProductID: p.ID, Quantity: 3, Destination: "CANOAS", ReferenceMovementID: &ref,
	})
	require.NoError(t, err)

	left, err := uc.ReturnableQuantity(ctx, exit.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	_, err = uc.CreateMovement(ctx, inventory.MovementInput{
		Type: "ENTRY", Nature: "RETURN", ProductID: p.ID, Quantity: 3, Destination: "CANOAS", ReferenceMovementID: &ref,
	})
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = uc.CreateMovement(ctx, inventory.MovementInput{
		Type: "ENTRY", Nature: "RETURN", ProductID: p.ID, Quantity: 2, Destination: "PF", ReferenceMovementID: &ref,
	})
	require.NoError(t, err)

	left, err = uc.ReturnableQuantity(ctx, exit.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 8, canoas)
	assert.Equal(t, 2, pf)
}

func TestCreateMovement_ReturnReferenceRules(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	ctx := context.Background()
	a := sqlitetest.SeedProduct(t, store, "A", 5, 0)
	b := sqlitetest.SeedProduct(t, store, "B", 5, 0)

	entry, err := uc.CreateMovement(ctx, inventory.MovementInput{Type: "ENTRY", ProductID: a.ID, Quantity: 1, Destination: "PF"})
	require.NoError(t, err)
	exitB, err := uc.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: b.ID, Quantity: 1, Origin: "CANOAS"})
	require.NoError(t, err)

	missing := int64(9999)
	tests := []struct {
		name string
		ref  *int64
	}{
		{"sin referencia", nil},
		{"referencia inexistente", &missing},
		{"referencia que no es salida", &entry.ID},
		{"salida de otro producto", &exitB.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateMovement(ctx, inventory.MovementInput{
				Type: "ENTRY", Nature: "RETURN", ProductID: a.ID, Quantity: 1, Destination: "CANOAS", ReferenceMovementID: tc.ref,
			})
			require.Error(t, err)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}
}

// ─────────────────────────────────────────────────────────────
//  Validación estructural
// ─────────────────────────────────────────────────────────────

func TestCreateMovement_Validation(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Prego", 10, 10)

	tests := []struct {
		name  string
		input inventory.MovementInput
	}{
		{"tipo inválido", inventory.MovementInput{Type: "MOVE", ProductID: p.ID, Quantity: 1}},
		{"cantidad cero", inventory.MovementInput{Type: "ENTRY", ProductID: p.ID, Quantity: 0, Destination: "PF"}},
		{"cantidad negativa", inventory.MovementInput{Type: "ENTRY", ProductID: p.ID, Quantity: -1, Destination: "PF"}},
		{"entrada sin destino", inventory.MovementInput{Type: "ENTRY", ProductID: p.ID, Quantity: 1}},
		{"salida sin origen", inventory.MovementInput{Type: "EXIT", ProductID: p.ID, Quantity: 1}},
		{"transferencia a sí misma", inventory.MovementInput{Type: "TRANSFER", ProductID: p.ID, Quantity: 1, Origin: "PF", Destination: "PF"}},
		{"ubicación desconocida", inventory.MovementInput{Type: "ENTRY", ProductID: p.ID, Quantity: 1, Destination: "POA"}},
		{"externa sin local", inventory.MovementInput{Type: "EXIT", Nature: "EXTERNAL_TRANSFER", ProductID: p.ID, Quantity: 1, Origin: "PF"}},
		{"externa como entrada", inventory.MovementInput{Type: "ENTRY", Nature: "EXTERNAL_TRANSFER", ProductID: p.ID, Quantity: 1, Destination: "PF", ExternalLocation: "Loja 3"}},
		{"ajuste sin motivo", inventory.MovementInput{Type: "EXIT", Nature: "ADJUSTMENT", ProductID: p.ID, Quantity: 1, Origin: "PF"}},
		{"ajuste como transferencia", inventory.MovementInput{Type: "TRANSFER", Nature: "ADJUSTMENT", Reason: "LOSS", ProductID: p.ID, Quantity: 1, Origin: "PF", Destination: "CANOAS"}},
		{"devolución como salida", inventory.MovementInput{Type: "EXIT", Nature: "RETURN", ProductID: p.ID, Quantity: 1, Origin: "PF"}},
		{"sin producto", inventory.MovementInput{Type: "ENTRY", Quantity: 1, Destination: "PF"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateMovement(context.Background(), tc.input)
			require.Error(t, err)
			assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
		})
	}

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 10, canoas)
	assert.Equal(t, 10, pf)
}

func TestCreateMovement_UnknownProduct(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)

	_, err := uc.CreateMovement(context.Background(), inventory.MovementInput{Type: "ENTRY", ProductID: 42, Quantity: 1, Destination: "PF"})
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

func TestCreateMovement_InactiveProduct(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Velho", 3, 0)
	_, err := sqlite.NewProductRepository(store.DB()).SetActive(context.Background(), []int64{p.ID}, false, "descontinuado", fixedNow)
	require.NoError(t, err)

	_, err = uc.CreateMovement(context.Background(), inventory.MovementInput{Type: "EXIT", ProductID: p.ID, Quantity: 1, Origin: "CANOAS"})
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestCreateMovement_ExternalTransferAndAdjustment(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Tinta", 4, 4)
	ctx := context.Background()

	ext, err := uc.CreateMovement(ctx, inventory.MovementInput{
		Type: "EXIT", Nature: "EXTERNAL_TRANSFER", ProductID: p.ID, Quantity: 2, Origin: "PF", ExternalLocation: "  Loja Centro ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Loja Centro", ext.ExternalLocation)

	adj, err := uc.CreateMovement(ctx, inventory.MovementInput{
		Type: "ENTRY", Nature: "ADJUSTMENT", Reason: "correction", ProductID: p.ID, Quantity: 1, Destination: "CANOAS",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonCorrection, adj.AdjustmentReason)

	got, err := uc.GetMovement(ctx, adj.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.NatureAdjustment, got.Nature)

	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 5, canoas)
	assert.Equal(t, 2, pf)
}

// ─────────────────────────────────────────────────────────────
//  Consultas
// ─────────────────────────────────────────────────────────────

func TestListMovements_Filters(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Cola", 10, 10)
	ctx := context.Background()

	for _, in := range []inventory.MovementInput{
		{Type: "ENTRY", ProductID: p.ID, Quantity: 1, Destination: "PF"},
		{Type: "EXIT", ProductID: p.ID, Quantity: 1, Origin: "CANOAS"},
		{Type: "TRANSFER", ProductID: p.ID, Quantity: 1, Origin: "CANOAS", Destination: "PF"},
	} {
		_, err := uc.CreateMovement(ctx, in)
		require.NoError(t, err)
	}

	list, total, err := uc.ListMovements(ctx, entity.MovementFilter{Type: entity.MovementExit, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, entity.MovementExit, list[0].Type)

	_, total, err = uc.ListMovements(ctx, entity.MovementFilter{Location: entity.LocationPF, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	from := fixedNow.Add(time.Hour)
	to := fixedNow
	_, _, err = uc.ListMovements(ctx, entity.MovementFilter{From: &from, To: &to})
	require.Error(t, err)
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
}

func TestGetMovement_NotFound(t *testing.T) {
	uc := newMovementUC(sqlitetest.NewStore(t))
	_, err := uc.GetMovement(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
}

// ─────────────────────────────────────────────────────────────
//  Escritores concurrentes sobre el mismo producto
// ─────────────────────────────────────────────────────────────

// runConcurrently lanza n llamadas a la vez y cuenta los resultados por código.
func runConcurrently(n int, fn func() error) map[domain.Code]int {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[domain.Code]int{}
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn()
			code := domain.Code("OK")
			if err != nil {
				code = domain.CodeOf(err)
			}
			mu.Lock()
			codes[code]++
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()
	return codes
}

func TestCreateMovement_ConcurrentExitsNeverOverdraw(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	p := sqlitetest.SeedProduct(t, store, "Disputado", 5, 0)

	codes := runConcurrently(20, func() error {
		_, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
			Type: "EXIT", ProductID: p.ID, Quantity: 1, Origin: "CANOAS",
		})
		return err
	})

	assert.Equal(t, map[domain.Code]int{"OK": 5, domain.CodeInsufficientBalance: 15}, codes)
	canoas, pf := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 0, canoas)
	assert.Equal(t, 0, pf)
	assert.Equal(t, 5, movementCount(t, store))
	assert.Equal(t, 5, historyCount(t, store))
}

func TestCreateMovement_ConcurrentReturnsRespectCap(t *testing.T) {
	store := sqlitetest.NewStore(t)
	uc := newMovementUC(store)
	ctx := context.Background()
	p := sqlitetest.SeedProduct(t, store, "Devolvido", 6, 0)

	exit, err := uc.CreateMovement(ctx, inventory.MovementInput{Type: "EXIT", ProductID: p.ID, Quantity: 4, Origin: "CANOAS"})
	require.NoError(t, err)
	ref := exit.ID

	codes := runConcurrently(12, func() error {
		_, err := uc.CreateMovement(context.Background(), inventory.MovementInput{
			Type: "ENTRY", Nature: "RETURN", ProductID: p.ID, Quantity: 1, Destination: "CANOAS", ReferenceMovementID: &ref,
		})
		return err
	})

	assert.Equal(t, map[domain.Code]int{"OK": 4, domain.CodeValidation: 8}, codes)
	left, err := uc.ReturnableQuantity(ctx, exit.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	canoas, _ := sqlitetest.Balances(t, store, p.ID)
	assert.Equal(t, 6, canoas)
}
