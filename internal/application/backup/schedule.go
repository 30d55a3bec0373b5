package backup

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const runDateLayout = "2006-01-02"

var scheduleKeys = []string{
	entity.KeyBackupEnabled,
	entity.KeyBackupHour,
	entity.KeyBackupMinute,
	entity.KeyBackupRetention,
	entity.KeyBackupMode,
	entity.KeyBackupWeekday,
	entity.KeyBackupLastRunDate,
	entity.KeyBackupLastResult,
	entity.KeyBackupLastBackup,
}

// GetSchedule lee la configuración persistida; las claves ausentes o inválidas toman el default.
func (m *Manager) GetSchedule(ctx context.Context) (entity.ScheduleConfig, error) {
	cfg := entity.DefaultSchedule()
	if m.settings == nil {
		return cfg, nil
	}
	values, err := m.settings.GetAll(ctx, scheduleKeys...)
	if err != nil {
		return cfg, fmt.Errorf("leer agendamiento: %w", err)
	}

	if v, ok := values[entity.KeyBackupEnabled]; ok {
		cfg.Enabled = parseBool(v)
	}
	cfg.Hour = intInRange(values[entity.KeyBackupHour], 0, 23, cfg.Hour)
	cfg.Minute = intInRange(values[entity.KeyBackupMinute], 0, 59, cfg.Minute)
	if r, err := strconv.Atoi(strings.TrimSpace(values[entity.KeyBackupRetention])); err == nil && slices.Contains(entity.RetentionChoices, r) {
		cfg.RetentionDays = r
	}
	if mode := entity.ScheduleMode(strings.ToUpper(strings.TrimSpace(values[entity.KeyBackupMode]))); mode == entity.ScheduleDaily || mode == entity.ScheduleWeekly {
		cfg.Mode = mode
	}
	cfg.Weekday = intInRange(values[entity.KeyBackupWeekday], 0, 6, cfg.Weekday)
	cfg.LastRunDate = values[entity.KeyBackupLastRunDate]
	cfg.LastResult = values[entity.KeyBackupLastResult]
	cfg.LastBackup = values[entity.KeyBackupLastBackup]
	return cfg, nil
}

// UpdateSchedule valida y persiste la configuración. La bitácora (last_*) no se modifica.
func (m *Manager) UpdateSchedule(ctx context.Context, cfg entity.ScheduleConfig) (entity.ScheduleConfig, error) {
	if m.settings == nil {
		return cfg, domain.NewValidation("agendamiento no disponible")
	}
	cfg.Mode = entity.ScheduleMode(strings.ToUpper(string(cfg.Mode)))
	switch {
	case cfg.Hour < 0 || cfg.Hour > 23:
		return cfg, domain.NewValidation("hora inválida: %d", cfg.Hour)
	case cfg.Minute < 0 || cfg.Minute > 59:
		return cfg, domain.NewValidation("minuto inválido: %d", cfg.Minute)
	case !slices.Contains(entity.RetentionChoices, cfg.RetentionDays):
		return cfg, domain.NewValidation("retención inválida: use 7, 15 o 30 días")
	case cfg.Mode != entity.ScheduleDaily && cfg.Mode != entity.ScheduleWeekly:
		return cfg, domain.NewValidation("modo inválido: use DAILY o WEEKLY")
	case cfg.Weekday < 0 || cfg.Weekday > 6:
		return cfg, domain.NewValidation("día de la semana inválido: %d", cfg.Weekday)
	}

	err := m.settings.Set(ctx, map[string]string{
		entity.KeyBackupEnabled:   formatBool(cfg.Enabled),
		entity.KeyBackupHour:      strconv.Itoa(cfg.Hour),
		entity.KeyBackupMinute:    strconv.Itoa(cfg.Minute),
		entity.KeyBackupRetention: strconv.Itoa(cfg.RetentionDays),
		entity.KeyBackupMode:      string(cfg.Mode),
		entity.KeyBackupWeekday:   strconv.Itoa(cfg.Weekday),
	})
	if err != nil {
		return cfg, fmt.Errorf("guardar agendamiento: %w", err)
	}
	return m.GetSchedule(ctx)
}

// RunDue evalúa el agendamiento en now y, si corresponde, crea un snapshot AUTO,
// aplica la retención y registra la bitácora. Como mucho una ejecución por día.
func (m *Manager) RunDue(ctx context.Context, now time.Time) (entity.RunResult, error) {
	cfg, err := m.GetSchedule(ctx)
	if err != nil {
		return entity.RunResult{Reason: entity.RunReasonError}, err
	}
	if !cfg.Enabled {
		return entity.RunResult{Reason: entity.RunReasonDisabled}, nil
	}
	if cfg.Mode == entity.ScheduleWeekly && entity.MondayBasedWeekday(now) != cfg.Weekday {
		return entity.RunResult{Reason: entity.RunReasonWrongWeekday}, nil
	}
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), cfg.Hour, cfg.Minute, 0, 0, now.Location())
	if now.Before(scheduled) {
		return entity.RunResult{Reason: entity.RunReasonBeforeSchedule}, nil
	}
	today := now.Format(runDateLayout)
	if cfg.LastRunDate == today {
		return entity.RunResult{Reason: entity.RunReasonAlreadyRan}, nil
	}

	snap, err := m.createSnapshot(ctx, entity.SnapshotAuto, now)
	if err != nil {
		if serr := m.settings.Set(ctx, map[string]string{
			entity.KeyBackupLastRunDate: today,
			entity.KeyBackupLastResult:  "erro: " + err.Error(),
		}); serr != nil {
			m.log.Error().Err(serr).Msg("no se pudo registrar la falla del backup automático")
		}
		return entity.RunResult{Reason: entity.RunReasonError}, err
	}

	// la retención puede fallar parcialmente sin invalidar el backup
	removed, _ := m.ApplyRetention(ctx, now, cfg.RetentionDays, m.maxAuto)

	if err := m.settings.Set(ctx, map[string]string{
		entity.KeyBackupLastRunDate: today,
		entity.KeyBackupLastResult:  "ok",
		entity.KeyBackupLastBackup:  snap.Name,
	}); err != nil {
		return entity.RunResult{Executed: true, Reason: entity.RunReasonError, Snapshot: snap.Name, Removed: removed}, fmt.Errorf("registrar backup automático: %w", err)
	}
	return entity.RunResult{Executed: true, Reason: entity.RunReasonExecuted, Snapshot: snap.Name, Removed: removed}, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on", "sim":
		return true
	}
	return false
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func intInRange(v string, lo, hi, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < lo || n > hi {
		return def
	}
	return n
}
