package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite (BEGIN IMMEDIATE vía DSN).
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
) error) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return fn(NewMovementRepository(tx), NewProductRepository(tx), NewHistoryRepository(tx))
	})
}

// RunInventory igual que Run, más el repositorio de inventario.
func (r *TxRunner) RunInventory(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
	historyRepo repository.HistoryRepository,
	invRepo repository.InventoryRepository,
) error) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return fn(NewMovementRepository(tx), NewProductRepository(tx), NewHistoryRepository(tx), NewInventoryRepository(tx))
	})
}

func (r *TxRunner) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
