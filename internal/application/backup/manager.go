// Package backup snapshots consistentes del store, restauración con red de seguridad,
// retención y backup automático programado.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Config directorio de snapshots y tope de automáticos (0 = sin tope por cantidad).
type Config struct {
	Dir              string
	MaxAutoSnapshots int
}

// Manager casos de uso de backup y restauración.
type Manager struct {
	store    SnapshotStore
	settings repository.SettingsRepository
	dir      string
	maxAuto  int
	log      *logger.Logger
	clock    func() time.Time

	// restoreMu serializa Restore/Reinstate; el store vivo se sobrescribe completo.
	restoreMu sync.Mutex
}

// NewManager construye el manager. settings puede ser nil si no se usa el agendamiento.
func NewManager(store SnapshotStore, settings repository.SettingsRepository, cfg Config, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		store:    store,
		settings: settings,
		dir:      cfg.Dir,
		maxAuto:  cfg.MaxAutoSnapshots,
		log:      log,
		clock:    time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Dir directorio de snapshots.
func (m *Manager) Dir() string {
	return m.dir
}

// CreateSnapshot checkpoint + copia en caliente a un archivo nuevo del tipo indicado.
func (m *Manager) CreateSnapshot(ctx context.Context, kind entity.SnapshotKind) (*entity.Snapshot, error) {
	return m.createSnapshot(ctx, kind, m.clock())
}

func (m *Manager) createSnapshot(ctx context.Context, kind entity.SnapshotKind, at time.Time) (*entity.Snapshot, error) {
	prefix := kind.Prefix()
	if prefix == "" {
		return nil, domain.NewValidation("tipo de snapshot inválido: %q", kind)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, domain.NewFileOperation(err, "no se pudo crear el directorio de backups")
	}

	base := prefix + at.Format(entity.SnapshotTimeLayout)
	name := base + entity.SnapshotExt
	path := filepath.Join(m.dir, name)
	for i := 1; fileExists(path); i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, entity.SnapshotExt)
		path = filepath.Join(m.dir, name)
	}

	if err := m.store.Checkpoint(ctx); err != nil {
		m.log.Warn().Err(err).Msg("checkpoint previo al snapshot falló")
	}
	if err := m.store.HotCopyTo(ctx, path); err != nil {
		_ = os.Remove(path)
		return nil, domain.NewFileOperation(err, "no se pudo crear el snapshot %s", name)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.NewFileOperation(err, "no se pudo leer el snapshot %s", name)
	}

	snap := &entity.Snapshot{
		Name:      name,
		Path:      path,
		Kind:      kind,
		SizeBytes: info.Size(),
		CreatedAt: at,
	}
	m.log.Info().Str("snapshot", name).Str("kind", string(kind)).Int64("size_bytes", snap.SizeBytes).Msg("snapshot creado")
	return snap, nil
}

// ValidateSnapshot valida un snapshot por nombre; nombre vacío valida el store vivo.
func (m *Manager) ValidateSnapshot(ctx context.Context, name string) (entity.ValidationReport, error) {
	if strings.TrimSpace(name) == "" {
		return m.store.Validate(ctx, "")
	}
	path, err := m.resolve(name)
	if err != nil {
		return entity.ValidationReport{}, err
	}
	return m.store.Validate(ctx, path)
}

// Restore reemplaza el store vivo por el snapshot. Antes toma un snapshot PRE_RESTORE y,
// si la copia o la revalidación fallan, lo reinstala.
func (m *Manager) Restore(ctx context.Context, name string) (*entity.Snapshot, error) {
	m.restoreMu.Lock()
	defer m.restoreMu.Unlock()

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	report, err := m.store.Validate(ctx, path)
	if err != nil {
		return nil, domain.NewIntegrity(err, "no se pudo validar el snapshot %s", name)
	}
	if !report.OK {
		return nil, domain.NewIntegrity(nil, "snapshot %s inválido: %s", name, report.Detail)
	}

	safety, err := m.CreateSnapshot(ctx, entity.SnapshotPreRestore)
	if err != nil {
		return nil, err
	}

	restoreErr := m.store.HotCopyFrom(ctx, path)
	if restoreErr == nil {
		live, err := m.store.Validate(ctx, "")
		switch {
		case err != nil:
			restoreErr = err
		case !live.OK:
			restoreErr = errors.New(live.Detail)
		}
	}
	if restoreErr != nil {
		if err := m.store.HotCopyFrom(ctx, safety.Path); err != nil {
			m.log.Error().Err(err).Str("snapshot", safety.Name).Msg("no se pudo reinstalar el snapshot de seguridad")
			restoreErr = multierr.Append(restoreErr, err)
		}
		return nil, domain.NewIntegrity(restoreErr, "falló la restauración de %s; se reinstaló %s", name, safety.Name)
	}

	m.log.Info().Str("snapshot", name).Str("safety", safety.Name).Msg("store restaurado")
	return safety, nil
}

// Reinstate copia el snapshot sobre el store vivo sin exigir tablas (rollback de migraciones,
// donde el snapshot puede ser de un esquema anterior).
func (m *Manager) Reinstate(ctx context.Context, name string) error {
	m.restoreMu.Lock()
	defer m.restoreMu.Unlock()

	path, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := m.store.HotCopyFrom(ctx, path); err != nil {
		return domain.NewIntegrity(err, "no se pudo reinstalar %s", name)
	}
	report, err := m.store.CheckIntegrity(ctx, "")
	if err != nil {
		return domain.NewIntegrity(err, "no se pudo verificar el store tras reinstalar %s", name)
	}
	if !report.OK {
		return domain.NewIntegrity(nil, "store inconsistente tras reinstalar %s: %s", name, report.Detail)
	}
	m.log.Warn().Str("snapshot", name).Msg("snapshot reinstalado")
	return nil
}

// List snapshots conocidos, más recientes primero.
func (m *Manager) List(ctx context.Context) ([]*entity.Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, domain.NewFileOperation(err, "no se pudo listar el directorio de backups")
	}

	var out []*entity.Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := entity.SnapshotKindOf(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, &entity.Snapshot{
			Name:      e.Name(),
			Path:      filepath.Join(m.dir, e.Name()),
			Kind:      kind,
			SizeBytes: info.Size(),
			CreatedAt: snapshotTime(e.Name(), kind, info.ModTime()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name > out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete borra un snapshot por nombre.
func (m *Manager) Delete(ctx context.Context, name string) error {
	path, err := m.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return domain.NewFileOperation(err, "no se pudo eliminar %s", name)
	}
	m.log.Info().Str("snapshot", name).Msg("snapshot eliminado")
	return nil
}

// ApplyRetention elimina snapshots AUTO más viejos que days o fuera de los maxCount más recientes.
// Los demás tipos nunca se tocan. Devuelve los eliminados y las fallas combinadas.
func (m *Manager) ApplyRetention(ctx context.Context, now time.Time, days, maxCount int) (int, error) {
	list, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := now.AddDate(0, 0, -days)

	var (
		removed int
		errs    error
		kept    int
	)
	for _, s := range list {
		if !s.AutoCleanable() {
			continue
		}
		expired := days > 0 && s.CreatedAt.Before(cutoff)
		overflow := maxCount > 0 && kept >= maxCount
		if !expired && !overflow {
			kept++
			continue
		}
		if err := os.Remove(s.Path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		removed++
	}
	if errs != nil {
		m.log.Warn().Err(errs).Int("removed", removed).Msg("limpieza de snapshots incompleta")
	}
	return removed, errs
}

// TestRestore restaura el snapshot en un archivo temporal, lo valida y cuenta productos.
// El store vivo no se toca.
func (m *Manager) TestRestore(ctx context.Context, name string) (*entity.TestRestoreReport, error) {
	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	tmpDir, err := os.MkdirTemp("", "restore_test_")
	if err != nil {
		return nil, domain.NewFileOperation(err, "no se pudo crear el directorio temporal")
	}
	defer os.RemoveAll(tmpDir)

	target := filepath.Join(tmpDir, "restore_test.db")
	report := &entity.TestRestoreReport{Name: name}
	if err := m.store.CopyFile(ctx, path, target); err != nil {
		report.Detail = err.Error()
		return report, nil
	}
	v, err := m.store.Validate(ctx, target)
	if err != nil {
		return nil, domain.NewIntegrity(err, "no se pudo validar la restauración de prueba")
	}
	report.OK, report.Detail = v.OK, v.Detail
	if !v.OK {
		return report, nil
	}
	if report.ProductCount, err = m.store.CountProducts(ctx, target); err != nil {
		report.OK = false
		report.Detail = err.Error()
	}
	return report, nil
}

// resolve valida el nombre (sin rutas, prefijo conocido) y que el archivo exista.
func (m *Manager) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) {
		return "", domain.NewValidation("nombre de snapshot inválido: %q", name)
	}
	if _, ok := entity.SnapshotKindOf(name); !ok {
		return "", domain.NewValidation("nombre de snapshot inválido: %q", name)
	}
	path := filepath.Join(m.dir, name)
	if !fileExists(path) {
		return "", domain.NewNotFound("snapshot %s no encontrado", name)
	}
	return path, nil
}

// snapshotTime lee el timestamp del nombre; si no se puede, usa la fecha del archivo.
func snapshotTime(name string, kind entity.SnapshotKind, fallback time.Time) time.Time {
	stamp := strings.TrimPrefix(strings.TrimSuffix(name, entity.SnapshotExt), kind.Prefix())
	if len(stamp) < len(entity.SnapshotTimeLayout) {
		return fallback
	}
	t, err := time.ParseInLocation(entity.SnapshotTimeLayout, stamp[:len(entity.SnapshotTimeLayout)], time.Local)
	if err != nil {
		return fallback
	}
	// sufijo _N de colisión: mismo segundo, orden estable por número
	if rest := stamp[len(entity.SnapshotTimeLayout):]; strings.HasPrefix(rest, "_") {
		if n, err := strconv.Atoi(rest[1:]); err == nil {
			t = t.Add(time.Duration(n) * time.Millisecond)
		}
	}
	return t
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
