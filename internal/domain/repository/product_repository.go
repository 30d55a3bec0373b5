package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para productos y sus saldos.
// Las implementaciones funcionan sobre el pool o sobre una tx del caller.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Product, error)
	// Update edita nombre, nota y saldos (edición explícita).
	Update(ctx context.Context, p *entity.Product) error
	// IncrementBalances suma los deltas; domain.ErrNotFound si la fila no existe.
	IncrementBalances(ctx context.Context, id int64, deltaCanoas, deltaPF int, at time.Time) error
	SetActive(ctx context.Context, ids []int64, active bool, reason string, at time.Time) (int, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f entity.ProductFilter) ([]*entity.Product, int, error)
	ListActive(ctx context.Context) ([]*entity.Product, error)
}
