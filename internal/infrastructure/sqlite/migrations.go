package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// SchemaMigrations pasos de esquema ordenados y versionados. Cada paso corre en su propia tx (goose)
// y es idempotente: IF NOT EXISTS o verificación de columna antes del ALTER.
func SchemaMigrations() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(1, &goose.GoFunc{RunTx: migrateCatalog}, nil),
		goose.NewGoMigration(2, &goose.GoFunc{RunTx: migrateMovements}, nil),
		goose.NewGoMigration(3, &goose.GoFunc{RunTx: migrateInventory}, nil),
		goose.NewGoMigration(4, &goose.GoFunc{RunTx: migrateProductActivation}, nil),
		goose.NewGoMigration(5, &goose.GoFunc{RunTx: migrateAnalyticsIndexes}, nil),
	}
}

// LatestSchemaVersion versión del último paso conocido por esta build.
const LatestSchemaVersion int64 = 5

func migrateCatalog(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS products (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT    NOT NULL,
			qty_canoas INTEGER NOT NULL DEFAULT 0 CHECK (qty_canoas >= 0),
			qty_pf     INTEGER NOT NULL DEFAULT 0 CHECK (qty_pf >= 0),
			note       TEXT,
			created_at TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)`,
		`CREATE TABLE IF NOT EXISTS history (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at   TEXT NOT NULL,
			operation    TEXT NOT NULL,
			product_name TEXT,
			quantity     INTEGER NOT NULL DEFAULT 0,
			note         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at)`,
		`CREATE TABLE IF NOT EXISTS system_info (
			key   TEXT PRIMARY KEY,
			value TEXT
		)`,
	)
}

func migrateMovements(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS movements (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at            TEXT    NOT NULL,
			type                  TEXT    NOT NULL CHECK (type IN ('ENTRY', 'EXIT', 'TRANSFER')),
			product_id            INTEGER NOT NULL REFERENCES products(id),
			quantity              INTEGER NOT NULL CHECK (quantity > 0),
			origin                TEXT,
			destination           TEXT,
			note                  TEXT,
			nature                TEXT    NOT NULL DEFAULT 'NORMAL',
			adjustment_reason     TEXT,
			external_location     TEXT,
			document              TEXT,
			reference_movement_id INTEGER REFERENCES movements(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_product_time ON movements(product_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_type_time ON movements(type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_type_origin_time ON movements(type, origin, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_type_dest_time ON movements(type, destination, created_at)`,
	)
}

func migrateInventory(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS inventory_sessions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			location   TEXT NOT NULL CHECK (location IN ('CANOAS', 'PF')),
			status     TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'APPLIED')),
			note       TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			applied_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_counts (
			session_id          INTEGER NOT NULL REFERENCES inventory_sessions(id) ON DELETE CASCADE,
			product_id          INTEGER NOT NULL REFERENCES products(id),
			system_qty          INTEGER NOT NULL,
			physical_qty        INTEGER CHECK (physical_qty IS NULL OR physical_qty >= 0),
			divergence          INTEGER,
			reason              TEXT,
			note                TEXT,
			applied_movement_id INTEGER REFERENCES movements(id),
			updated_at          TEXT,
			PRIMARY KEY (session_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inv_counts_product ON inventory_counts(product_id)`,
	)
}

func migrateProductActivation(ctx context.Context, tx *sql.Tx) error {
	cols := []struct{ name, ddl string }{
		{"active", `ALTER TABLE products ADD COLUMN active INTEGER NOT NULL DEFAULT 1`},
		{"deactivated_at", `ALTER TABLE products ADD COLUMN deactivated_at TEXT`},
		{"deactivation_reason", `ALTER TABLE products ADD COLUMN deactivation_reason TEXT`},
	}
	for _, c := range cols {
		exists, err := columnExists(ctx, tx, "products", c.name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("agregar columna products.%s: %w", c.name, err)
		}
	}
	return execAll(ctx, tx, `CREATE INDEX IF NOT EXISTS idx_products_active ON products(active, name)`)
}

func migrateAnalyticsIndexes(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE INDEX IF NOT EXISTS idx_mov_nature_time ON movements(nature, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_reference ON movements(reference_movement_id)`,
	)
}

func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ejecutar %.60q: %w", stmt, err)
		}
	}
	return nil
}

func columnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func tableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("buscar tabla %s: %w", table, err)
	}
	return n > 0, nil
}
