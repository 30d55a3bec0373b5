package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SnapshotResponse salida de un snapshot.
type SnapshotResponse struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidationResponse resultado de validar un snapshot o el store vivo.
type ValidationResponse struct {
	Name   string `json:"name,omitempty"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// TestRestoreResponse resultado de la restauración de prueba.
type TestRestoreResponse struct {
	Name         string `json:"name"`
	OK           bool   `json:"ok"`
	Detail       string `json:"detail"`
	ProductCount int    `json:"product_count"`
}

// ScheduleRequest body para PUT /api/backups/schedule.
type ScheduleRequest struct {
	Enabled       bool   `json:"enabled"`
	Hour          int    `json:"hour" validate:"min=0,max=23"`
	Minute        int    `json:"minute" validate:"min=0,max=59"`
	RetentionDays int    `json:"retention_days" validate:"oneof=7 15 30"`
	Mode          string `json:"mode" validate:"oneof=DAILY WEEKLY"`
	Weekday       int    `json:"weekday" validate:"min=0,max=6"`
}

// ScheduleResponse configuración y bitácora del backup automático.
type ScheduleResponse struct {
	Enabled       bool   `json:"enabled"`
	Hour          int    `json:"hour"`
	Minute        int    `json:"minute"`
	RetentionDays int    `json:"retention_days"`
	Mode          string `json:"mode"`
	Weekday       int    `json:"weekday"`
	LastRunDate   string `json:"last_run_date,omitempty"`
	LastResult    string `json:"last_result,omitempty"`
	LastBackup    string `json:"last_backup,omitempty"`
}

// RunResultResponse resultado de una evaluación del agendamiento.
type RunResultResponse struct {
	Executed bool   `json:"executed"`
	Reason   string `json:"reason"`
	Snapshot string `json:"snapshot,omitempty"`
	Removed  int    `json:"removed"`
}

// NewSnapshotResponse mapea la entidad.
func NewSnapshotResponse(s *entity.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Name:      s.Name,
		Kind:      string(s.Kind),
		SizeBytes: s.SizeBytes,
		CreatedAt: s.CreatedAt,
	}
}

// NewScheduleResponse mapea la configuración.
func NewScheduleResponse(c entity.ScheduleConfig) ScheduleResponse {
	return ScheduleResponse{
		Enabled:       c.Enabled,
		Hour:          c.Hour,
		Minute:        c.Minute,
		RetentionDays: c.RetentionDays,
		Mode:          string(c.Mode),
		Weekday:       c.Weekday,
		LastRunDate:   c.LastRunDate,
		LastResult:    c.LastResult,
		LastBackup:    c.LastBackup,
	}
}

// ToEntity convierte el request en configuración (la bitácora se conserva aparte).
func (r ScheduleRequest) ToEntity() entity.ScheduleConfig {
	return entity.ScheduleConfig{
		Enabled:       r.Enabled,
		Hour:          r.Hour,
		Minute:        r.Minute,
		RetentionDays: r.RetentionDays,
		Mode:          entity.ScheduleMode(r.Mode),
		Weekday:       r.Weekday,
	}
}
