package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo clave/valor en system_info.
type SettingsRepo struct {
	q Querier
}

// NewSettingsRepository construye el adaptador.
func NewSettingsRepository(q Querier) *SettingsRepo {
	return &SettingsRepo{q: q}
}

// Get valor de la clave; ok=false si no existe.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v sql.NullString
	err := r.q.QueryRowContext(ctx, `SELECT value FROM system_info WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v.String, true, nil
}

// GetAll valores de las claves pedidas que existan.
func (r *SettingsRepo) GetAll(ctx context.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT key, value FROM system_info WHERE key IN (`+placeholders(len(keys))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k string
			v sql.NullString
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v.String
	}
	return out, rows.Err()
}

// Set upsert de varias claves.
func (r *SettingsRepo) Set(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO system_info (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("set setting %s: %w", k, err)
		}
	}
	return nil
}
