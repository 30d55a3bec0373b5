package sqlite

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/jhoicas/stock-ledger/internal/application/migration"
)

var _ migration.SchemaMigrator = (*Migrator)(nil)

// versionTable tabla de versiones de goose.
const versionTable = "goose_db_version"

// Migrator aplica los pasos de esquema con el provider de goose (sin registro global).
type Migrator struct {
	store    *Store
	provider *goose.Provider
}

// NewMigrator construye el migrador con los pasos por defecto.
func NewMigrator(store *Store) (*Migrator, error) {
	return NewMigratorWith(store, SchemaMigrations()...)
}

// NewMigratorWith construye el migrador con pasos explícitos (tests).
func NewMigratorWith(store *Store, steps ...*goose.Migration) (*Migrator, error) {
	p, err := goose.NewProvider(goose.DialectSQLite3, store.DB(), nil,
		goose.WithGoMigrations(steps...),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("crear provider goose: %w", err)
	}
	return &Migrator{store: store, provider: p}, nil
}

// CurrentVersion versión persistida; 0 si la base nunca fue migrada.
func (m *Migrator) CurrentVersion(ctx context.Context) (int64, error) {
	ok, err := tableExists(ctx, m.store.DB(), versionTable)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	v, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("versión de esquema: %w", err)
	}
	return v, nil
}

// Pending versiones estrictamente mayores a la actual y no mayores al objetivo.
func (m *Migrator) Pending(ctx context.Context, target int64) ([]int64, error) {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, src := range m.provider.ListSources() {
		if src.Version > current && src.Version <= target {
			out = append(out, src.Version)
		}
	}
	return out, nil
}

// UpTo aplica los pasos pendientes hasta target. goose revierte la tx del paso que falla.
func (m *Migrator) UpTo(ctx context.Context, target int64) ([]int64, error) {
	results, err := m.provider.UpTo(ctx, target)
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		if r != nil && r.Source != nil && r.Error == nil {
			applied = append(applied, r.Source.Version)
		}
	}
	if err != nil {
		return applied, fmt.Errorf("goose up-to %d: %w", target, err)
	}
	return applied, nil
}

// Latest última versión disponible.
func (m *Migrator) Latest() int64 {
	var latest int64
	for _, src := range m.provider.ListSources() {
		if src.Version > latest {
			latest = src.Version
		}
	}
	return latest
}
