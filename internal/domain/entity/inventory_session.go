package entity

import "time"

// SessionStatus estado de una sesión de inventario. APPLIED es terminal.
type SessionStatus string

const (
	SessionOpen    SessionStatus = "OPEN"
	SessionApplied SessionStatus = "APPLIED"
)

// InventorySession sesión de conteo físico en una ubicación.
type InventorySession struct {
	ID             int64
	Name           string
	Location       Location
	Status         SessionStatus
	Note           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AppliedAt      *time.Time
	TotalItems     int
	CountedItems   int
	DivergentItems int
}

// InventoryCount fila (sesión, producto) con la foto del sistema y el conteo físico.
type InventoryCount struct {
	SessionID         int64
	ProductID         int64
	ProductName       string
	SystemQty         int
	PhysicalQty       *int
	Divergence        *int
	Reason            AdjustmentReason
	Note              string
	AppliedMovementID *int64
	UpdatedAt         *time.Time
}

// CountItem entrada de UpdateCounts.
type CountItem struct {
	ProductID   int64
	PhysicalQty int
	Reason      string
	Note        string
}
