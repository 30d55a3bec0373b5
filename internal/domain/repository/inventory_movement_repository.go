package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementRepository puerto del ledger de movimientos (append-only).
type MovementRepository interface {
	// Insert asigna m.ID.
	Insert(ctx context.Context, m *entity.Movement) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Movement, error)
	// SumReturnsFor total devuelto (RETURN) que referencia la salida indicada.
	SumReturnsFor(ctx context.Context, exitID int64) (int, error)
	List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, int, error)
}
