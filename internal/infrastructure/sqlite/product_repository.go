package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, name, qty_canoas, qty_pf, COALESCE(note, ''), active, deactivated_at,
	COALESCE(deactivation_reason, ''), created_at, updated_at`

// ProductRepo implementación de ProductRepository sobre SQLite (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create inserta el producto y asigna ID y timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	now := formatTime(p.CreatedAt)
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO products (name, qty_canoas, qty_pf, note, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)`,
		p.Name, p.QtyCanoas, p.QtyPF, nullString(p.Note), now, now,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.NewValidation("las cantidades no pueden ser negativas")
		}
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert product id: %w", err)
	}
	p.ID = id
	p.Active = true
	p.UpdatedAt = p.CreatedAt
	return nil
}

// GetByID obtiene un producto; nil, nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs obtiene varios productos (los inexistentes se omiten).
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// Update edición explícita de nombre, nota y saldos.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE products SET name = ?, note = ?, qty_canoas = ?, qty_pf = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, nullString(p.Note), p.QtyCanoas, p.QtyPF, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.NewValidation("las cantidades no pueden ser negativas")
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireAffected(res, "producto %d no encontrado", p.ID)
}

// IncrementBalances suma deltas a ambos saldos en una sola sentencia.
// El CHECK de la tabla rechaza cualquier saldo negativo aunque el caller no lo haya validado.
func (r *ProductRepo) IncrementBalances(ctx context.Context, id int64, deltaCanoas, deltaPF int, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE products SET qty_canoas = qty_canoas + ?, qty_pf = qty_pf + ?, updated_at = ?
		WHERE id = ?`,
		deltaCanoas, deltaPF, formatTime(at), id,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.NewInsufficientBalance("saldo insuficiente para el producto %d", id)
		}
		return fmt.Errorf("increment balances: %w", err)
	}
	return requireAffected(res, "producto %d no encontrado", id)
}

// SetActive activa o inactiva en lote; devuelve filas afectadas.
func (r *ProductRepo) SetActive(ctx context.Context, ids []int64, active bool, reason string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{}
	var query string
	if active {
		query = `UPDATE products SET active = 1, deactivated_at = NULL, deactivation_reason = NULL, updated_at = ?
			WHERE id IN (` + placeholders(len(ids)) + `)`
		args = append(args, formatTime(at))
	} else {
		query = `UPDATE products SET active = 0, deactivated_at = ?, deactivation_reason = ?, updated_at = ?
			WHERE id IN (` + placeholders(len(ids)) + `)`
		args = append(args, formatTime(at), nullString(reason), formatTime(at))
	}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("set active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set active rows: %w", err)
	}
	return int(n), nil
}

// Delete borra el producto. Si hay movimientos o conteos que lo referencian la FK lo impide.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewValidation("el producto %d tiene movimientos registrados; inactívelo en lugar de eliminarlo", id)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return requireAffected(res, "producto %d no encontrado", id)
}

// List búsqueda por nombre con paginación; devuelve también el total.
func (r *ProductRepo) List(ctx context.Context, f entity.ProductFilter) ([]*entity.Product, int, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeInactive {
		where = append(where, "active = 1")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+strings.ToUpper(q)+"%")
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products`+whereSQL+` ORDER BY name ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, limitOrDefault(f.Limit), f.Offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list, err := scanProducts(rows)
	return list, total, err
}

// ListActive todos los productos activos (snapshot de inventario).
func (r *ProductRepo) ListActive(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*entity.Product, error) {
	var (
		p                    entity.Product
		active               int
		deactivatedAt        sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.QtyCanoas, &p.QtyPF, &p.Note, &active, &deactivatedAt,
		&p.DeactivationReason, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Active = active == 1
	p.DeactivatedAt = parseTimePtr(deactivatedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanProducts(rows *sql.Rows) ([]*entity.Product, error) {
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func requireAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.NewNotFound(format, args...)
	}
	return nil
}
