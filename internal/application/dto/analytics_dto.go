package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Query parameters ──────────────────────────────────────────────────────────

// PeriodRequest parámetros comunes de rango. Fechas YYYY-MM-DD; por defecto últimos 30 días.
type PeriodRequest struct {
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"`
	Bucket    string `query:"bucket"` // day|week|month
	Scope     string `query:"scope"`  // CANOAS|PF|BOTH
	Limit     int    `query:"limit"`
}

// StaleRequest parámetros de GET /api/analytics/stale.
type StaleRequest struct {
	Days  int `query:"days"`
	Limit int `query:"limit"`
}

// ── Respuestas ────────────────────────────────────────────────────────────────

// StockSummaryDTO totales actuales.
type StockSummaryDTO struct {
	Products  int `json:"products"`
	Canoas    int `json:"canoas"`
	PF        int `json:"pf"`
	Total     int `json:"total"`
	ZeroStock int `json:"zero_stock"`
}

// LocationShareDTO total y participación de una ubicación.
type LocationShareDTO struct {
	Location string          `json:"location"`
	Label    string          `json:"label"`
	Quantity int             `json:"quantity"`
	Percent  decimal.Decimal `json:"percent"` // 2 decimales
}

// StockDistributionDTO reparto del stock entre ubicaciones.
type StockDistributionDTO struct {
	Total     int                `json:"total"`
	Locations []LocationShareDTO `json:"locations"`
}

// TopExitDTO salida neta por producto.
type TopExitDTO struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// FlowPointDTO entradas y salidas netas de un período.
type FlowPointDTO struct {
	Period  string `json:"period"`
	Entries int    `json:"entries"`
	Exits   int    `json:"exits"`
	Net     int    `json:"net"`
}

// EvolutionPointDTO stock total al cierre de un período.
type EvolutionPointDTO struct {
	Period string `json:"period"`
	Total  int    `json:"total"`
}

// StockEvolutionDTO serie reconstruida hacia atrás desde el stock actual.
type StockEvolutionDTO struct {
	StartTotal int                 `json:"start_total"`
	EndTotal   int                 `json:"end_total"`
	Points     []EvolutionPointDTO `json:"points"`
}

// StaleProductDTO producto activo sin movimiento reciente.
type StaleProductDTO struct {
	ProductID    int64      `json:"product_id"`
	ProductName  string     `json:"product_name"`
	Total        int        `json:"total"`
	LastMovement *time.Time `json:"last_movement,omitempty"`
	IdleDays     *int       `json:"idle_days,omitempty"`
}
