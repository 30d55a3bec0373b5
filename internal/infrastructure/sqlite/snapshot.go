package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ backup.SnapshotStore = (*SnapshotStore)(nil)

// RequiredTables tablas que un snapshot debe tener para poder restaurarse.
var RequiredTables = []string{
	"products",
	"movements",
	"history",
	"system_info",
	"inventory_sessions",
	"inventory_counts",
}

// SnapshotStore copias en caliente con la API de backup en línea de SQLite.
type SnapshotStore struct {
	store *Store
}

// NewSnapshotStore construye el adaptador sobre el store vivo.
func NewSnapshotStore(store *Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Checkpoint vuelca el WAL sin bloquear lectores ni escritores.
func (s *SnapshotStore) Checkpoint(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, `PRAGMA wal_checkpoint(PASSIVE)`); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

// HotCopyTo copia el store vivo a path. El archivo resultante queda en modo DELETE
// para ser autocontenido (sin -wal).
func (s *SnapshotStore) HotCopyTo(ctx context.Context, path string) (err error) {
	dst, err := openFile(ctx, path, false)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dst.Close()) }()

	if err := copyDatabase(ctx, dst, s.store.db); err != nil {
		return err
	}
	return setJournalDelete(ctx, dst)
}

// HotCopyFrom reemplaza el contenido del store vivo por el de path y trunca el WAL.
func (s *SnapshotStore) HotCopyFrom(ctx context.Context, path string) (err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return fmt.Errorf("snapshot inaccesible: %w", statErr)
	}
	src, err := openFile(ctx, path, true)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	if err := copyDatabase(ctx, s.store.db, src); err != nil {
		return err
	}
	if _, err := s.store.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("wal checkpoint tras restaurar: %w", err)
	}
	return nil
}

// CopyFile copia src a dst (restauración de prueba); el store vivo no participa.
func (s *SnapshotStore) CopyFile(ctx context.Context, src, dst string) (err error) {
	if _, statErr := os.Stat(src); statErr != nil {
		return fmt.Errorf("snapshot inaccesible: %w", statErr)
	}
	from, err := openFile(ctx, src, true)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, from.Close()) }()

	to, err := openFile(ctx, dst, false)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, to.Close()) }()

	if err := copyDatabase(ctx, to, from); err != nil {
		return err
	}
	return setJournalDelete(ctx, to)
}

// Validate integrity_check + tablas requeridas. path vacío = store vivo.
// Un archivo ilegible no es error: el reporte sale con OK=false y el detalle.
func (s *SnapshotStore) Validate(ctx context.Context, path string) (entity.ValidationReport, error) {
	return s.check(ctx, path, true)
}

// CheckIntegrity sólo integrity_check.
func (s *SnapshotStore) CheckIntegrity(ctx context.Context, path string) (entity.ValidationReport, error) {
	return s.check(ctx, path, false)
}

func (s *SnapshotStore) check(ctx context.Context, path string, requireTables bool) (report entity.ValidationReport, err error) {
	db := s.store.db
	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return entity.ValidationReport{Detail: "archivo inexistente"}, nil
		}
		fileDB, openErr := openFile(ctx, path, true)
		if openErr != nil {
			return entity.ValidationReport{Detail: openErr.Error()}, nil
		}
		defer func() { err = multierr.Append(err, fileDB.Close()) }()
		db = fileDB
	}

	detail, err := integrityCheck(ctx, db)
	if err != nil {
		return entity.ValidationReport{Detail: err.Error()}, nil
	}
	if detail != "ok" {
		return entity.ValidationReport{Detail: detail}, nil
	}
	if !requireTables {
		return entity.ValidationReport{OK: true, Detail: "ok"}, nil
	}

	var missing []string
	for _, table := range RequiredTables {
		ok, err := tableExists(ctx, db, table)
		if err != nil {
			return entity.ValidationReport{Detail: err.Error()}, nil
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return entity.ValidationReport{Detail: "tablas faltantes: " + strings.Join(missing, ", ")}, nil
	}
	return entity.ValidationReport{OK: true, Detail: "ok"}, nil
}

// CountProducts filas de products en el archivo.
func (s *SnapshotStore) CountProducts(ctx context.Context, path string) (n int, err error) {
	db, err := openFile(ctx, path, true)
	if err != nil {
		return 0, err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("contar productos: %w", err)
	}
	return n, nil
}

// openFile abre un archivo SQLite suelto con una sola conexión. readOnly usa URI mode=ro
// para no crear archivos vacíos ni escribir en snapshots.
func openFile(ctx context.Context, path string, readOnly bool) (*sql.DB, error) {
	name := path
	if readOnly {
		name = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	return db, nil
}

// copyDatabase copia "main" de src sobre "main" de dst con sqlite3_backup.
func copyDatabase(ctx context.Context, dst, src *sql.DB) (err error) {
	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return fmt.Errorf("conexión destino: %w", err)
	}
	defer func() { err = multierr.Append(err, dstConn.Close()) }()

	srcConn, err := src.Conn(ctx)
	if err != nil {
		return fmt.Errorf("conexión origen: %w", err)
	}
	defer func() { err = multierr.Append(err, srcConn.Close()) }()

	return dstConn.Raw(func(dstDriver any) error {
		return srcConn.Raw(func(srcDriver any) error {
			d, ok := dstDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("conexión destino no es sqlite3")
			}
			sc, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("conexión origen no es sqlite3")
			}
			b, err := d.Backup("main", sc, "main")
			if err != nil {
				return fmt.Errorf("iniciar backup: %w", err)
			}
			for {
				done, err := b.Step(-1)
				if err != nil {
					_ = b.Finish()
					return fmt.Errorf("copiar páginas: %w", err)
				}
				if done {
					break
				}
			}
			if err := b.Finish(); err != nil {
				return fmt.Errorf("finalizar backup: %w", err)
			}
			return nil
		})
	})
}

func setJournalDelete(ctx context.Context, db *sql.DB) error {
	var mode string
	if err := db.QueryRowContext(ctx, `PRAGMA journal_mode=DELETE`).Scan(&mode); err != nil {
		return fmt.Errorf("journal_mode del snapshot: %w", err)
	}
	return nil
}

func integrityCheck(ctx context.Context, db *sql.DB) (string, error) {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return "", fmt.Errorf("integrity_check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", fmt.Errorf("integrity_check: %w", err)
		}
		problems = append(problems, line)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("integrity_check: %w", err)
	}
	if len(problems) == 1 && problems[0] == "ok" {
		return "ok", nil
	}
	if len(problems) == 0 {
		return "integrity_check sin resultado", nil
	}
	return strings.Join(problems, "; "), nil
}
