package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// returnsByExit total devuelto por salida referenciada.
const returnsByExit = `
	SELECT reference_movement_id AS ref_id, SUM(quantity) AS total
	FROM movements
	WHERE nature = 'RETURN' AND type = 'ENTRY' AND reference_movement_id IS NOT NULL
	GROUP BY reference_movement_id`

// AnalyticsRepo consultas de sólo lectura. Las salidas se cuentan netas de devoluciones.
type AnalyticsRepo struct {
	q Querier
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(q Querier) *AnalyticsRepo {
	return &AnalyticsRepo{q: q}
}

func bucketFormat(b repository.Bucket) string {
	switch b {
	case repository.BucketWeek:
		return "%Y-%W"
	case repository.BucketMonth:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

// StockTotals totales actuales de todo el catálogo.
func (r *AnalyticsRepo) StockTotals(ctx context.Context) (repository.StockTotals, error) {
	var t repository.StockTotals
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(qty_canoas), 0),
		       COALESCE(SUM(qty_pf), 0),
		       COALESCE(SUM(CASE WHEN qty_canoas + qty_pf = 0 THEN 1 ELSE 0 END), 0)
		FROM products`).Scan(&t.Products, &t.Canoas, &t.PF, &t.ZeroStock)
	if err != nil {
		return t, fmt.Errorf("stock totals: %w", err)
	}
	return t, nil
}

// TopExits ranking de salidas netas por producto; sólo totales > 0.
func (r *AnalyticsRepo) TopExits(ctx context.Context, from, to time.Time, scope entity.Location, limit int) ([]repository.ProductQuantity, error) {
	rows, err := r.q.QueryContext(ctx, `
		WITH ret AS (`+returnsByExit+`)
		SELECT m.product_id, COALESCE(p.name, ''), SUM(MAX(m.quantity - COALESCE(ret.total, 0), 0)) AS total
		FROM movements m
		LEFT JOIN ret ON ret.ref_id = m.id
		LEFT JOIN products p ON p.id = m.product_id
		WHERE m.type = 'EXIT' AND m.created_at >= ? AND m.created_at <= ?
		  AND (? = '' OR m.origin = ?)
		GROUP BY m.product_id
		HAVING total > 0
		ORDER BY total DESC, p.name ASC
		LIMIT ?`,
		formatTime(from), formatTime(to), string(scope), string(scope), limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("top exits: %w", err)
	}
	defer rows.Close()

	var out []repository.ProductQuantity
	for rows.Next() {
		var pq repository.ProductQuantity
		if err := rows.Scan(&pq.ProductID, &pq.ProductName, &pq.Quantity); err != nil {
			return nil, fmt.Errorf("scan top exits: %w", err)
		}
		out = append(out, pq)
	}
	return out, rows.Err()
}

// Flow entradas y salidas netas por período. Las transferencias internas no cuentan.
func (r *AnalyticsRepo) Flow(ctx context.Context, from, to time.Time, bucket repository.Bucket, scope entity.Location) ([]repository.FlowPoint, error) {
	format := bucketFormat(bucket)
	f, t, s := formatTime(from), formatTime(to), string(scope)
	rows, err := r.q.QueryContext(ctx, `
		WITH ret AS (`+returnsByExit+`),
		ev AS (
			SELECT strftime(?, m.created_at) AS period, m.quantity AS entries, 0 AS exits
			FROM movements m
			WHERE m.type = 'ENTRY' AND m.created_at >= ? AND m.created_at <= ?
			  AND (? = '' OR m.destination = ?)
			UNION ALL
			SELECT strftime(?, m.created_at), 0, MAX(m.quantity - COALESCE(ret.total, 0), 0)
			FROM movements m
			LEFT JOIN ret ON ret.ref_id = m.id
			WHERE m.type = 'EXIT' AND m.created_at >= ? AND m.created_at <= ?
			  AND (? = '' OR m.origin = ?)
		)
		SELECT period, SUM(entries), SUM(exits) FROM ev GROUP BY period ORDER BY period`,
		format, f, t, s, s,
		format, f, t, s, s,
	)
	if err != nil {
		return nil, fmt.Errorf("flow: %w", err)
	}
	defer rows.Close()
	return scanFlow(rows)
}

// NetDeltaSince delta neto del stock total desde since (ENTRY suma, EXIT resta).
func (r *AnalyticsRepo) NetDeltaSince(ctx context.Context, since time.Time) (int, error) {
	var delta int
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE type WHEN 'ENTRY' THEN quantity WHEN 'EXIT' THEN -quantity ELSE 0 END), 0)
		FROM movements WHERE created_at >= ?`, formatTime(since)).Scan(&delta)
	if err != nil {
		return 0, fmt.Errorf("net delta since: %w", err)
	}
	return delta, nil
}

// NetDeltaSeries entradas y salidas brutas por período (las devoluciones ya son entradas).
func (r *AnalyticsRepo) NetDeltaSeries(ctx context.Context, from, to time.Time, bucket repository.Bucket) ([]repository.FlowPoint, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT strftime(?, created_at) AS period,
		       COALESCE(SUM(CASE WHEN type = 'ENTRY' THEN quantity ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = 'EXIT' THEN quantity ELSE 0 END), 0)
		FROM movements
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY period ORDER BY period`,
		bucketFormat(bucket), formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("net delta series: %w", err)
	}
	defer rows.Close()
	return scanFlow(rows)
}

// StaleProducts productos activos cuyo último movimiento es anterior al corte (o nunca se movieron).
func (r *AnalyticsRepo) StaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]repository.StaleProduct, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT p.id, p.name, p.qty_canoas + p.qty_pf AS total, MAX(m.created_at) AS last_mov
		FROM products p
		LEFT JOIN movements m ON m.product_id = p.id
		WHERE p.active = 1
		GROUP BY p.id
		HAVING last_mov IS NULL OR last_mov < ?
		ORDER BY last_mov ASC, total DESC
		LIMIT ?`,
		formatTime(cutoff), limitOrDefault(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("stale products: %w", err)
	}
	defer rows.Close()

	var out []repository.StaleProduct
	for rows.Next() {
		var (
			sp   repository.StaleProduct
			last sql.NullString
		)
		if err := rows.Scan(&sp.ProductID, &sp.ProductName, &sp.Total, &last); err != nil {
			return nil, fmt.Errorf("scan stale products: %w", err)
		}
		sp.LastMovement = parseTimePtr(last)
		out = append(out, sp)
	}
	return out, rows.Err()
}

func scanFlow(rows *sql.Rows) ([]repository.FlowPoint, error) {
	var out []repository.FlowPoint
	for rows.Next() {
		var fp repository.FlowPoint
		if err := rows.Scan(&fp.Period, &fp.Entries, &fp.Exits); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
