package migration

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// SchemaMigrator aplica pasos de esquema versionados.
type SchemaMigrator interface {
	CurrentVersion(ctx context.Context) (int64, error)
	Pending(ctx context.Context, target int64) ([]int64, error)
	UpTo(ctx context.Context, target int64) ([]int64, error)
}

// Snapshotter subconjunto del gestor de backups que usa la migración.
type Snapshotter interface {
	CreateSnapshot(ctx context.Context, kind entity.SnapshotKind) (*entity.Snapshot, error)
	Reinstate(ctx context.Context, name string) error
}

// Result resumen de una ejecución.
type Result struct {
	From     int64
	To       int64
	Applied  []int64
	Snapshot string
}

// Manager envuelve cada migración en un snapshot PRE_UPDATE y lo reinstala si algún paso falla.
type Manager struct {
	migrator SchemaMigrator
	backups  Snapshotter
	log      *logger.Logger
}

// NewManager construye el gestor. log puede ser nil.
func NewManager(migrator SchemaMigrator, backups Snapshotter, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{migrator: migrator, backups: backups, log: log}
}

// Run aplica los pasos con versión en (actual, target]. Sin pendientes no toca nada.
func (m *Manager) Run(ctx context.Context, target int64) (*Result, error) {
	current, err := m.migrator.CurrentVersion(ctx)
	if err != nil {
		return nil, domain.NewMigration(err, "leer versión de esquema")
	}
	res := &Result{From: current, To: current}

	pending, err := m.migrator.Pending(ctx, target)
	if err != nil {
		return nil, domain.NewMigration(err, "calcular pasos pendientes")
	}
	if len(pending) == 0 {
		return res, nil
	}

	snap, err := m.backups.CreateSnapshot(ctx, entity.SnapshotPreUpdate)
	if err != nil {
		return nil, domain.NewMigration(err, "snapshot previo a la migración")
	}
	res.Snapshot = snap.Name
	m.log.Info().
		Int64("from", current).
		Int64("target", target).
		Ints64("pending", pending).
		Str("snapshot", snap.Name).
		Msg("migración de esquema iniciada")

	applied, err := m.migrator.UpTo(ctx, target)
	res.Applied = applied
	if err != nil {
		m.log.Error().Err(err).Ints64("applied", applied).Msg("migración fallida, reinstalando snapshot")
		if rerr := m.backups.Reinstate(ctx, snap.Name); rerr != nil {
			m.log.Error().Err(rerr).Str("snapshot", snap.Name).Msg("no se pudo reinstalar el snapshot previo")
			return res, domain.NewMigration(fmt.Errorf("%w; reinstalación: %v", err, rerr), "migración fallida y snapshot no reinstalado")
		}
		return res, domain.NewMigration(err, "migración fallida; base restaurada al snapshot %s", snap.Name)
	}

	if res.To, err = m.migrator.CurrentVersion(ctx); err != nil {
		return res, domain.NewMigration(err, "leer versión final")
	}
	m.log.Info().Int64("version", res.To).Msg("migración de esquema completada")
	return res, nil
}
