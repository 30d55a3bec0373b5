package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `m.id, m.created_at, m.type, m.product_id, COALESCE(p.name, ''), m.quantity,
	COALESCE(m.origin, ''), COALESCE(m.destination, ''), COALESCE(m.note, ''), m.nature,
	COALESCE(m.adjustment_reason, ''), COALESCE(m.external_location, ''), COALESCE(m.document, ''),
	m.reference_movement_id`

// MovementRepo ledger de movimientos sobre SQLite.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Insert agrega el movimiento (append-only) y asigna m.ID.
func (r *MovementRepo) Insert(ctx context.Context, m *entity.Movement) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO movements (created_at, type, product_id, quantity, origin, destination, note,
			nature, adjustment_reason, external_location, document, reference_movement_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(m.CreatedAt), string(m.Type), m.ProductID, m.Quantity,
		nullString(string(m.Origin)), nullString(string(m.Destination)), nullString(m.Note),
		string(m.Nature), nullString(string(m.AdjustmentReason)), nullString(m.ExternalLocation),
		nullString(m.Document), nullInt64(m.ReferenceMovementID),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewNotFound("producto o movimiento de referencia inexistente")
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert movement id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID obtiene un movimiento; nil, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id int64) (*entity.Movement, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+movementColumns+`
		FROM movements m LEFT JOIN products p ON p.id = m.product_id
		WHERE m.id = ?`, id)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// SumReturnsFor total de devoluciones que referencian la salida.
func (r *MovementRepo) SumReturnsFor(ctx context.Context, exitID int64) (int, error) {
	var total int
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM movements
		WHERE reference_movement_id = ? AND nature = ? AND type = ?`,
		exitID, string(entity.NatureReturn), string(entity.MovementEntry),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum returns: %w", err)
	}
	return total, nil
}

// List movimientos filtrados, más recientes primero, con total.
func (r *MovementRepo) List(ctx context.Context, f entity.MovementFilter) ([]*entity.Movement, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ProductID != nil {
		where = append(where, "m.product_id = ?")
		args = append(args, *f.ProductID)
	}
	if f.Type != "" {
		where = append(where, "m.type = ?")
		args = append(args, string(f.Type))
	}
	if f.Nature != "" {
		where = append(where, "m.nature = ?")
		args = append(args, string(f.Nature))
	}
	if f.Location != "" {
		where = append(where, "(m.origin = ? OR m.destination = ?)")
		args = append(args, string(f.Location), string(f.Location))
	}
	if f.From != nil {
		where = append(where, "m.created_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "m.created_at <= ?")
		args = append(args, formatTime(*f.To))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM movements m`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT `+movementColumns+`
		FROM movements m LEFT JOIN products p ON p.id = m.product_id`+whereSQL+`
		ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`,
		append(args, limitOrDefault(f.Limit), f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, total, rows.Err()
}

func scanMovement(s rowScanner) (*entity.Movement, error) {
	var (
		m                                       entity.Movement
		createdAt, typ, origin, dest, nat, reas string
		ref                                     sql.NullInt64
	)
	if err := s.Scan(&m.ID, &createdAt, &typ, &m.ProductID, &m.ProductName, &m.Quantity,
		&origin, &dest, &m.Note, &nat, &reas, &m.ExternalLocation, &m.Document, &ref); err != nil {
		return nil, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.Type = entity.MovementType(typ)
	m.Origin = entity.Location(origin)
	m.Destination = entity.Location(dest)
	m.Nature = entity.Nature(nat)
	m.AdjustmentReason = entity.AdjustmentReason(reas)
	m.ReferenceMovementID = int64Ptr(ref)
	return &m, nil
}
