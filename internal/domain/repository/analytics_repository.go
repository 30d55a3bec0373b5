package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Bucket granularidad de series temporales.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

// StockTotals totales actuales del catálogo.
type StockTotals struct {
	Products  int
	Canoas    int
	PF        int
	ZeroStock int
}

// ProductQuantity cantidad agregada por producto (ranking).
type ProductQuantity struct {
	ProductID   int64
	ProductName string
	Quantity    int
}

// FlowPoint entradas y salidas netas por período.
type FlowPoint struct {
	Period  string
	Entries int
	Exits   int
}

// StaleProduct producto activo sin movimiento reciente.
type StaleProduct struct {
	ProductID    int64
	ProductName  string
	Total        int
	LastMovement *time.Time
}

// AnalyticsRepository consultas de lectura. Las salidas siempre son netas:
// max(cantidad - devoluciones vinculadas, 0).
type AnalyticsRepository interface {
	StockTotals(ctx context.Context) (StockTotals, error)
	// TopExits scope vacío = ambas ubicaciones.
	TopExits(ctx context.Context, from, to time.Time, scope entity.Location, limit int) ([]ProductQuantity, error)
	Flow(ctx context.Context, from, to time.Time, bucket Bucket, scope entity.Location) ([]FlowPoint, error)
	// NetDeltaSince suma de deltas netos de stock total desde el instante (ajustes incluidos).
	NetDeltaSince(ctx context.Context, since time.Time) (int, error)
	// NetDeltaSeries delta neto de stock total por período entre from y to.
	NetDeltaSeries(ctx context.Context, from, to time.Time, bucket Bucket) ([]FlowPoint, error)
	StaleProducts(ctx context.Context, cutoff time.Time, limit int) ([]StaleProduct, error)
}
