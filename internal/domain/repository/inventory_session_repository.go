package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryRepository puerto de sesiones y conteos de inventario.
type InventoryRepository interface {
	CreateSession(ctx context.Context, s *entity.InventorySession) error
	// SnapshotCounts inserta un conteo por producto activo con el saldo actual en la ubicación.
	SnapshotCounts(ctx context.Context, sessionID int64, loc entity.Location) (int, error)
	// GetSession devuelve nil, nil si no existe.
	GetSession(ctx context.Context, id int64) (*entity.InventorySession, error)
	ListSessions(ctx context.Context, limit, offset int) ([]*entity.InventorySession, int, error)
	// GetCount devuelve nil, nil si el producto no pertenece a la sesión.
	GetCount(ctx context.Context, sessionID, productID int64) (*entity.InventoryCount, error)
	UpdateCount(ctx context.Context, c *entity.InventoryCount, at time.Time) error
	PendingDivergences(ctx context.Context, sessionID int64) ([]*entity.InventoryCount, error)
	LinkMovement(ctx context.Context, sessionID, productID, movementID int64, at time.Time) error
	MarkApplied(ctx context.Context, sessionID int64, at time.Time) error
	TouchSession(ctx context.Context, sessionID int64, at time.Time) error
	ListCounts(ctx context.Context, sessionID int64, onlyDivergent bool, limit, offset int) ([]*entity.InventoryCount, int, error)
}
