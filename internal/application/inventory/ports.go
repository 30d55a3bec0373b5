package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Garantiza atomicidad del ledger.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		historyRepo repository.HistoryRepository,
	) error) error

	// RunInventory igual que Run con el repositorio de inventario (sesiones y conteos).
	RunInventory(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		productRepo repository.ProductRepository,
		historyRepo repository.HistoryRepository,
		invRepo repository.InventoryRepository,
	) error) error
}
