package entity

import (
	"strings"
	"time"
)

// SnapshotKind propósito del snapshot, codificado como prefijo del archivo.
type SnapshotKind string

const (
	SnapshotAuto       SnapshotKind = "AUTO"
	SnapshotPreUpdate  SnapshotKind = "PRE_UPDATE"
	SnapshotPreRestore SnapshotKind = "PRE_RESTORE"
	SnapshotManual     SnapshotKind = "MANUAL"
)

var snapshotPrefixes = map[SnapshotKind]string{
	SnapshotAuto:       "backup_auto_",
	SnapshotPreUpdate:  "backup_pre_update_",
	SnapshotPreRestore: "backup_pre_restore_",
	SnapshotManual:     "backup_manual_",
}

// SnapshotExt extensión de los archivos de snapshot.
const SnapshotExt = ".db"

// SnapshotTimeLayout formato del timestamp en el nombre.
const SnapshotTimeLayout = "20060102_150405"

// Prefix prefijo de archivo para el tipo.
func (k SnapshotKind) Prefix() string {
	return snapshotPrefixes[k]
}

// SnapshotKindOf deduce el tipo a partir del nombre; ok=false si no es un snapshot conocido.
func SnapshotKindOf(name string) (SnapshotKind, bool) {
	if !strings.HasSuffix(name, SnapshotExt) {
		return "", false
	}
	for kind, prefix := range snapshotPrefixes {
		if strings.HasPrefix(name, prefix) {
			return kind, true
		}
	}
	return "", false
}

// Snapshot copia consistente de todo el store en un instante.
type Snapshot struct {
	Name      string
	Path      string
	Kind      SnapshotKind
	SizeBytes int64
	CreatedAt time.Time
}

// AutoCleanable sólo los automáticos entran en la retención.
func (s *Snapshot) AutoCleanable() bool {
	return s.Kind == SnapshotAuto
}

// ValidationReport resultado de validar un snapshot o el store vivo.
type ValidationReport struct {
	OK     bool
	Detail string
}

// TestRestoreReport resultado de una restauración de prueba en base temporal.
type TestRestoreReport struct {
	Name         string
	OK           bool
	Detail       string
	ProductCount int
}
