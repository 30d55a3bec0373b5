package backup

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SnapshotStore puerto hacia el motor de almacenamiento. La implementación SQLite usa
// la API de backup en línea, así que las copias son consistentes con el store abierto.
type SnapshotStore interface {
	// Checkpoint vuelca el WAL al archivo principal antes de copiar.
	Checkpoint(ctx context.Context) error
	// HotCopyTo copia el store vivo a path.
	HotCopyTo(ctx context.Context, path string) error
	// HotCopyFrom reemplaza el contenido del store vivo con el de path.
	HotCopyFrom(ctx context.Context, path string) error
	// CopyFile copia src a dst sin tocar el store vivo.
	CopyFile(ctx context.Context, src, dst string) error
	// Validate integridad + tablas requeridas; path vacío = store vivo.
	Validate(ctx context.Context, path string) (entity.ValidationReport, error)
	// CheckIntegrity sólo integrity_check (sin tablas requeridas).
	CheckIntegrity(ctx context.Context, path string) (entity.ValidationReport, error)
	// CountProducts filas de products en el archivo indicado.
	CountProducts(ctx context.Context, path string) (int, error)
}
