package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateMovementRequest body para POST /api/movements.
// ENTRY usa destination, EXIT usa origin y TRANSFER ambos.
type CreateMovementRequest struct {
	Type                string     `json:"type" validate:"required"`
	ProductID           int64      `json:"product_id" validate:"required,gt=0"`
	Quantity            int        `json:"quantity" validate:"required,gt=0"`
	Origin              string     `json:"origin,omitempty"`
	Destination         string     `json:"destination,omitempty"`
	Nature              string     `json:"nature,omitempty"`
	Reason              string     `json:"reason,omitempty"`
	ExternalLocation    string     `json:"external_location,omitempty" validate:"max=200"`
	Document            string     `json:"document,omitempty" validate:"max=100"`
	ReferenceMovementID *int64     `json:"reference_movement_id,omitempty" validate:"omitempty,gt=0"`
	Note                string     `json:"note,omitempty" validate:"max=500"`
	OccurredAt          *time.Time `json:"occurred_at,omitempty"`
}

// MovementListRequest query de GET /api/movements. Fechas YYYY-MM-DD.
type MovementListRequest struct {
	ProductID int64  `query:"product_id"`
	Type      string `query:"type"`
	Nature    string `query:"nature"`
	Location  string `query:"location"`
	From      string `query:"from"`
	To        string `query:"to"`
	PageRequest
}

// MovementResponse salida de un movimiento.
type MovementResponse struct {
	ID                  int64     `json:"id"`
	Type                string    `json:"type"`
	ProductID           int64     `json:"product_id"`
	ProductName         string    `json:"product_name"`
	Quantity            int       `json:"quantity"`
	Origin              string    `json:"origin,omitempty"`
	Destination         string    `json:"destination,omitempty"`
	Nature              string    `json:"nature"`
	AdjustmentReason    string    `json:"adjustment_reason,omitempty"`
	ExternalLocation    string    `json:"external_location,omitempty"`
	Document            string    `json:"document,omitempty"`
	ReferenceMovementID *int64    `json:"reference_movement_id,omitempty"`
	Note                string    `json:"note,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// MovementListResponse lista paginada.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// ReturnableResponse saldo devolvible de una salida.
type ReturnableResponse struct {
	MovementID int64 `json:"movement_id"`
	Returnable int   `json:"returnable"`
}

// CreateSessionRequest body para POST /api/inventory/sessions.
type CreateSessionRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Location string `json:"location" validate:"required"`
	Note     string `json:"note" validate:"max=500"`
}

// CountItemRequest un conteo físico.
type CountItemRequest struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	PhysicalQty *int   `json:"physical_qty" validate:"required,min=0"`
	Reason      string `json:"reason,omitempty"`
	Note        string `json:"note,omitempty" validate:"max=500"`
}

// UpdateCountsRequest body para PUT /api/inventory/sessions/:id/counts.
type UpdateCountsRequest struct {
	Items []CountItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ApplySessionRequest body para POST /api/inventory/sessions/:id/apply.
type ApplySessionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// CountListRequest query de GET /api/inventory/sessions/:id/counts.
type CountListRequest struct {
	OnlyDivergent bool `query:"only_divergent"`
	PageRequest
}

// SessionResponse salida de una sesión.
type SessionResponse struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Location       string     `json:"location"`
	Status         string     `json:"status"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AppliedAt      *time.Time `json:"applied_at,omitempty"`
	TotalItems     int        `json:"total_items"`
	CountedItems   int        `json:"counted_items"`
	DivergentItems int        `json:"divergent_items"`
}

// SessionListResponse lista paginada de sesiones.
type SessionListResponse struct {
	Items []SessionResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// CountResponse fila de conteo.
type CountResponse struct {
	ProductID         int64      `json:"product_id"`
	ProductName       string     `json:"product_name"`
	SystemQty         int        `json:"system_qty"`
	PhysicalQty       *int       `json:"physical_qty"`
	Divergence        *int       `json:"divergence"`
	Reason            string     `json:"reason,omitempty"`
	Note              string     `json:"note,omitempty"`
	AppliedMovementID *int64     `json:"applied_movement_id,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// CountListResponse lista paginada de conteos.
type CountListResponse struct {
	Items []CountResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// ApplySessionResponse sesión cerrada y movimientos generados.
type ApplySessionResponse struct {
	Session   SessionResponse    `json:"session"`
	Movements []MovementResponse `json:"movements"`
}

// NewMovementResponse mapea la entidad.
func NewMovementResponse(m *entity.Movement) MovementResponse {
	return MovementResponse{
		ID:                  m.ID,
		Type:                string(m.Type),
		ProductID:           m.ProductID,
		ProductName:         m.ProductName,
		Quantity:            m.Quantity,
		Origin:              string(m.Origin),
		Destination:         string(m.Destination),
		Nature:              string(m.Nature),
		AdjustmentReason:    string(m.AdjustmentReason),
		ExternalLocation:    m.ExternalLocation,
		Document:            m.Document,
		ReferenceMovementID: m.ReferenceMovementID,
		Note:                m.Note,
		CreatedAt:           m.CreatedAt,
	}
}

// NewSessionResponse mapea la entidad.
func NewSessionResponse(s *entity.InventorySession) SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		Name:           s.Name,
		Location:       string(s.Location),
		Status:         string(s.Status),
		Note:           s.Note,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		AppliedAt:      s.AppliedAt,
		TotalItems:     s.TotalItems,
		CountedItems:   s.CountedItems,
		DivergentItems: s.DivergentItems,
	}
}

// NewCountResponse mapea la entidad.
func NewCountResponse(c *entity.InventoryCount) CountResponse {
	return CountResponse{
		ProductID:         c.ProductID,
		ProductName:       c.ProductName,
		SystemQty:         c.SystemQty,
		PhysicalQty:       c.PhysicalQty,
		Divergence:        c.Divergence,
		Reason:            string(c.Reason),
		Note:              c.Note,
		AppliedMovementID: c.AppliedMovementID,
		UpdatedAt:         c.UpdatedAt,
	}
}
