package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

const sessionSelect = `
	SELECT s.id, s.name, s.location, s.status, COALESCE(s.note, ''), s.created_at, s.updated_at, s.applied_at,
	       COUNT(c.product_id),
	       COALESCE(SUM(CASE WHEN c.physical_qty IS NOT NULL THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN COALESCE(c.divergence, 0) <> 0 THEN 1 ELSE 0 END), 0)
	FROM inventory_sessions s
	LEFT JOIN inventory_counts c ON c.session_id = s.id`

const countSelect = `
	SELECT c.session_id, c.product_id, COALESCE(p.name, ''), c.system_qty, c.physical_qty, c.divergence,
	       COALESCE(c.reason, ''), COALESCE(c.note, ''), c.applied_movement_id, c.updated_at
	FROM inventory_counts c
	JOIN products p ON p.id = c.product_id`

// InventoryRepo sesiones y conteos de inventario sobre SQLite.
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

// CreateSession inserta la sesión (OPEN) y asigna ID.
func (r *InventoryRepo) CreateSession(ctx context.Context, s *entity.InventorySession) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_sessions (name, location, status, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, string(s.Location), string(entity.SessionOpen), nullString(s.Note),
		formatTime(s.CreatedAt), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert inventory session: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert inventory session id: %w", err)
	}
	s.Status = entity.SessionOpen
	s.UpdatedAt = s.CreatedAt
	return nil
}

// SnapshotCounts foto del saldo de cada producto activo en la ubicación.
func (r *InventoryRepo) SnapshotCounts(ctx context.Context, sessionID int64, loc entity.Location) (int, error) {
	column := "qty_canoas"
	if loc == entity.LocationPF {
		column = "qty_pf"
	}
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO inventory_counts (session_id, product_id, system_qty)
		SELECT ?, p.id, p.`+column+`
		FROM products p
		WHERE p.active = 1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("snapshot inventory counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("snapshot inventory counts rows: %w", err)
	}
	return int(n), nil
}

// GetSession sesión con agregados; nil, nil si no existe.
func (r *InventoryRepo) GetSession(ctx context.Context, id int64) (*entity.InventorySession, error) {
	row := r.q.QueryRowContext(ctx, sessionSelect+` WHERE s.id = ? GROUP BY s.id`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory session: %w", err)
	}
	return s, nil
}

// ListSessions más recientes primero.
func (r *InventoryRepo) ListSessions(ctx context.Context, limit, offset int) ([]*entity.InventorySession, int, error) {
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory sessions: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, sessionSelect+` GROUP BY s.id ORDER BY s.id DESC LIMIT ? OFFSET ?`,
		limitOrDefault(limit), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory sessions: %w", err)
	}
	defer rows.Close()

	var list []*entity.InventorySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan inventory session: %w", err)
		}
		list = append(list, s)
	}
	return list, total, rows.Err()
}

// GetCount conteo de un producto en la sesión; nil, nil si no pertenece.
func (r *InventoryRepo) GetCount(ctx context.Context, sessionID, productID int64) (*entity.InventoryCount, error) {
	row := r.q.QueryRowContext(ctx, countSelect+` WHERE c.session_id = ? AND c.product_id = ?`, sessionID, productID)
	c, err := scanCount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory count: %w", err)
	}
	return c, nil
}

// UpdateCount guarda conteo físico, divergencia, motivo y nota; limpia el vínculo aplicado.
func (r *InventoryRepo) UpdateCount(ctx context.Context, c *entity.InventoryCount, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE inventory_counts
		SET physical_qty = ?, divergence = ?, reason = ?, note = ?, applied_movement_id = NULL, updated_at = ?
		WHERE session_id = ? AND product_id = ?`,
		nullInt(c.PhysicalQty), nullInt(c.Divergence), nullString(string(c.Reason)), nullString(c.Note),
		formatTime(at), c.SessionID, c.ProductID,
	)
	if err != nil {
		return fmt.Errorf("update inventory count: %w", err)
	}
	c.AppliedMovementID = nil
	return requireAffected(res, "producto %d no pertenece a la sesión %d", c.ProductID, c.SessionID)
}

// PendingDivergences filas con divergencia distinta de cero aún no aplicadas.
func (r *InventoryRepo) PendingDivergences(ctx context.Context, sessionID int64) ([]*entity.InventoryCount, error) {
	rows, err := r.q.QueryContext(ctx, countSelect+`
		WHERE c.session_id = ? AND COALESCE(c.divergence, 0) <> 0 AND c.applied_movement_id IS NULL
		ORDER BY p.name ASC, c.product_id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("pending divergences: %w", err)
	}
	defer rows.Close()
	return scanCounts(rows)
}

// LinkMovement vincula el conteo al movimiento de ajuste creado.
func (r *InventoryRepo) LinkMovement(ctx context.Context, sessionID, productID, movementID int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE inventory_counts SET applied_movement_id = ?, updated_at = ?
		WHERE session_id = ? AND product_id = ?`,
		movementID, formatTime(at), sessionID, productID,
	)
	if err != nil {
		return fmt.Errorf("link inventory movement: %w", err)
	}
	return requireAffected(res, "producto %d no pertenece a la sesión %d", productID, sessionID)
}

// MarkApplied transición OPEN -> APPLIED; falla si la sesión ya no estaba abierta.
func (r *InventoryRepo) MarkApplied(ctx context.Context, sessionID int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE inventory_sessions SET status = ?, applied_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(entity.SessionApplied), formatTime(at), formatTime(at), sessionID, string(entity.SessionOpen),
	)
	if err != nil {
		return fmt.Errorf("mark session applied: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark session applied rows: %w", err)
	}
	if n == 0 {
		return domain.NewValidation("la sesión %d no está abierta", sessionID)
	}
	return nil
}

// TouchSession actualiza updated_at.
func (r *InventoryRepo) TouchSession(ctx context.Context, sessionID int64, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE inventory_sessions SET updated_at = ? WHERE id = ?`,
		formatTime(at), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return requireAffected(res, "sesión de inventario %d no encontrada", sessionID)
}

// ListCounts conteos de la sesión ordenados por nombre, con total.
func (r *InventoryRepo) ListCounts(ctx context.Context, sessionID int64, onlyDivergent bool, limit, offset int) ([]*entity.InventoryCount, int, error) {
	where := ` WHERE c.session_id = ?`
	if onlyDivergent {
		where += ` AND COALESCE(c.divergence, 0) <> 0`
	}
	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_counts c`+where, sessionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory counts: %w", err)
	}
	rows, err := r.q.QueryContext(ctx, countSelect+where+` ORDER BY p.name ASC, c.product_id ASC LIMIT ? OFFSET ?`,
		sessionID, limitOrDefault(limit), offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list inventory counts: %w", err)
	}
	defer rows.Close()
	list, err := scanCounts(rows)
	return list, total, err
}

func scanSession(s rowScanner) (*entity.InventorySession, error) {
	var (
		sess                 entity.InventorySession
		loc, status          string
		createdAt, updatedAt string
		appliedAt            sql.NullString
	)
	if err := s.Scan(&sess.ID, &sess.Name, &loc, &status, &sess.Note, &createdAt, &updatedAt, &appliedAt,
		&sess.TotalItems, &sess.CountedItems, &sess.DivergentItems); err != nil {
		return nil, err
	}
	sess.Location = entity.Location(loc)
	sess.Status = entity.SessionStatus(status)
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	sess.AppliedAt = parseTimePtr(appliedAt)
	return &sess, nil
}

func scanCount(s rowScanner) (*entity.InventoryCount, error) {
	var (
		c                    entity.InventoryCount
		physical, divergence sql.NullInt64
		applied              sql.NullInt64
		reason               string
		updatedAt            sql.NullString
	)
	if err := s.Scan(&c.SessionID, &c.ProductID, &c.ProductName, &c.SystemQty, &physical, &divergence,
		&reason, &c.Note, &applied, &updatedAt); err != nil {
		return nil, err
	}
	c.PhysicalQty = intPtr(physical)
	c.Divergence = intPtr(divergence)
	c.Reason = entity.AdjustmentReason(reason)
	c.AppliedMovementID = int64Ptr(applied)
	c.UpdatedAt = parseTimePtr(updatedAt)
	return &c, nil
}

func scanCounts(rows *sql.Rows) ([]*entity.InventoryCount, error) {
	var list []*entity.InventoryCount
	for rows.Next() {
		c, err := scanCount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory count: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}
