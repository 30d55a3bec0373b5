// Package bootstrap arma el grafo de dependencias compartido por la API y el CLI:
// store SQLite, repositorios, casos de uso, backups, migraciones y métricas.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/application/analytics"
	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/migration"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// App dependencias ya construidas. Un solo *sql.DB para todo el proceso.
type App struct {
	Config *config.Config
	Log    *logger.Logger

	Store     *sqlite.Store
	Migrator  *sqlite.Migrator
	Migration *migration.Manager
	Backups   *backup.Manager
	Scheduler *backup.Scheduler

	Products   *usecase.ProductUseCase
	Movements  *inventory.MovementUseCase
	Reconciler *inventory.ReconcilerUseCase
	Analytics  *analytics.AnalyticsUseCase

	Registry *prometheus.Registry
}

// New abre el store y construye el grafo. No migra: ver Prepare.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	store, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.DB.Path, MaxOpenConns: cfg.DB.MaxOpenConns})
	if err != nil {
		return nil, fmt.Errorf("abrir store: %w", err)
	}
	migrator, err := sqlite.NewMigrator(store)
	if err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedgerMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	db := store.DB()
	txRunner := sqlite.NewTxRunner(db)
	productRepo := sqlite.NewProductRepository(db)
	movementRepo := sqlite.NewMovementRepository(db)
	inventoryRepo := sqlite.NewInventoryRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)
	analyticsRepo := sqlite.NewAnalyticsRepository(db)

	backups := backup.NewManager(sqlite.NewSnapshotStore(store), settingsRepo, backup.Config{
		Dir:              cfg.Backup.Dir,
		MaxAutoSnapshots: cfg.Backup.MaxAutoSnapshots,
	}, log)
	movements := inventory.NewMovementUseCase(txRunner, productRepo, movementRepo, log, ledgerMetrics)

	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Migrator:   migrator,
		Migration:  migration.NewManager(migrator, backups, log),
		Backups:    backups,
		Scheduler:  backup.NewScheduler(backups, time.Duration(cfg.Backup.SchedulerIntervalSeconds)*time.Second, log, jobMetrics),
		Products:   usecase.NewProductUseCase(txRunner, productRepo, log),
		Movements:  movements,
		Reconciler: inventory.NewReconcilerUseCase(txRunner, inventoryRepo, movements, log, ledgerMetrics),
		Analytics:  analytics.NewAnalyticsUseCase(analyticsRepo),
		Registry:   reg,
	}, nil
}

// TargetVersion traduce 0 a la última versión disponible.
func (a *App) TargetVersion(target int64) int64 {
	if target <= 0 {
		return a.Migrator.Latest()
	}
	return target
}

// Prepare migra hasta la versión configurada y, con el esquema al día, importa la base
// anterior si corresponde. Corre antes de exponer el servicio.
func (a *App) Prepare(ctx context.Context) error {
	target := a.TargetVersion(a.Config.Migration.TargetVersion)
	res, err := a.Migration.Run(ctx, target)
	if err != nil {
		return err
	}
	if len(res.Applied) > 0 {
		a.Log.Info().Int64("from", res.From).Int64("to", res.To).Str("snapshot", res.Snapshot).Msg("esquema actualizado")
	}
	if res.To < a.Migrator.Latest() {
		a.Log.Warn().Int64("version", res.To).Msg("esquema por debajo de la última versión; se omite la importación de la base anterior")
		return nil
	}
	imp, err := sqlite.ImportLegacy(ctx, a.Config.DB.LegacyPath, a.Store, a.Log.WithComponent("legacy_import"))
	if err != nil {
		return fmt.Errorf("importar base anterior: %w", err)
	}
	if imp.Skipped {
		a.Log.Debug().Str("reason", imp.Reason).Msg("importación de la base anterior omitida")
	}
	return nil
}

// Close libera el store.
func (a *App) Close() error {
	return a.Store.Close()
}
