package sqlite

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo auditoría legible sobre SQLite.
type HistoryRepo struct {
	q Querier
}

// NewHistoryRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewHistoryRepository(q Querier) *HistoryRepo {
	return &HistoryRepo{q: q}
}

// Insert agrega una fila de histórico.
func (r *HistoryRepo) Insert(ctx context.Context, h *entity.HistoryEntry) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO history (created_at, operation, product_name, quantity, note)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(h.CreatedAt), h.Operation, nullString(h.ProductName), h.Quantity, nullString(h.Note),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert history id: %w", err)
	}
	return nil
}

// List más recientes primero.
func (r *HistoryRepo) List(ctx context.Context, limit, offset int) ([]*entity.HistoryEntry, int, error) {
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, created_at, operation, COALESCE(product_name, ''), quantity, COALESCE(note, '')
		FROM history ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limitOrDefault(limit), offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var list []*entity.HistoryEntry
	for rows.Next() {
		var (
			h         entity.HistoryEntry
			createdAt string
		)
		if err := rows.Scan(&h.ID, &createdAt, &h.Operation, &h.ProductName, &h.Quantity, &h.Note); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		h.CreatedAt = parseTime(createdAt)
		list = append(list, &h)
	}
	return list, total, rows.Err()
}
