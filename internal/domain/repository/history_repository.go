package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// HistoryRepository auditoría legible (sólo escritura desde el motor).
type HistoryRepository interface {
	Insert(ctx context.Context, h *entity.HistoryEntry) error
	List(ctx context.Context, limit, offset int) ([]*entity.HistoryEntry, int, error)
}
