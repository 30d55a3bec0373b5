package entity

import "time"

// ScheduleMode frecuencia del backup automático.
type ScheduleMode string

const (
	ScheduleDaily  ScheduleMode = "DAILY"
	ScheduleWeekly ScheduleMode = "WEEKLY"
)

// Claves persistidas en system_info.
const (
	KeyBackupEnabled     = "backup_auto_enabled"
	KeyBackupHour        = "backup_auto_hour"
	KeyBackupMinute      = "backup_auto_minute"
	KeyBackupRetention   = "backup_retention_days"
	KeyBackupMode        = "backup_auto_schedule_mode"
	KeyBackupWeekday     = "backup_auto_weekday"
	KeyBackupLastRunDate = "backup_auto_last_run_date"
	KeyBackupLastResult  = "backup_auto_last_result"
	KeyBackupLastBackup  = "backup_auto_last_backup"
)

// RetentionChoices días de retención permitidos.
var RetentionChoices = []int{7, 15, 30}

// ScheduleConfig configuración persistida del backup automático.
// Weekday: 0 = lunes ... 6 = domingo.
type ScheduleConfig struct {
	Enabled       bool
	Hour          int
	Minute        int
	RetentionDays int
	Mode          ScheduleMode
	Weekday       int
	LastRunDate   string // YYYY-MM-DD
	LastResult    string
	LastBackup    string
}

// DefaultSchedule valores por defecto (18:00 diario, 15 días).
func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled:       false,
		Hour:          18,
		Minute:        0,
		RetentionDays: 15,
		Mode:          ScheduleDaily,
		Weekday:       0,
	}
}

// MondayBasedWeekday convierte time.Weekday (domingo=0) a lunes=0.
func MondayBasedWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Motivos de RunResult.
const (
	RunReasonExecuted       = "executed"
	RunReasonDisabled       = "disabled"
	RunReasonWrongWeekday   = "wrong_weekday"
	RunReasonBeforeSchedule = "before_schedule"
	RunReasonAlreadyRan     = "already_ran_today"
	RunReasonError          = "error"
)

// RunResult resultado de una evaluación del agendamiento.
type RunResult struct {
	Executed bool
	Reason   string
	Snapshot string
	Removed  int
}
