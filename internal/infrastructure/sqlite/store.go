package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Config opciones de apertura del store embebido.
type Config struct {
	Path         string
	MaxOpenConns int // por defecto 4
}

// Store handle único del archivo SQLite; se construye una vez y se inyecta.
// Usa WAL para que lectores no bloqueen durante escrituras, checkpoints y copias en caliente.
type Store struct {
	db   *sql.DB
	path string
}

// Open abre (o crea) la base en cfg.Path. Todas las conexiones del pool salen con:
//   - WAL y synchronous=NORMAL
//   - busy_timeout de 5s
//   - foreign keys activas
//   - BEGIN IMMEDIATE en cada tx (escritores serializados)
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path requerido")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("crear directorio de la base: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("abrir base: %w", err)
	}
	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping base: %w", err)
	}
	return &Store{db: db, path: cfg.Path}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// DB devuelve el pool subyacente.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path ruta del archivo vivo.
func (s *Store) Path() string {
	return s.path
}

// Close cierra el pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
