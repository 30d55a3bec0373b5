package dto

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CreateProductRequest entrada para registrar un producto.
type CreateProductRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	QtyCanoas int    `json:"qty_canoas" validate:"min=0"`
	QtyPF     int    `json:"qty_pf" validate:"min=0"`
	Note      string `json:"note" validate:"max=500"`
}

// UpdateProductRequest edición explícita; sólo se aplican los campos presentes.
type UpdateProductRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Note      *string `json:"note" validate:"omitempty,max=500"`
	QtyCanoas *int    `json:"qty_canoas" validate:"omitempty,min=0"`
	QtyPF     *int    `json:"qty_pf" validate:"omitempty,min=0"`
}

// SetProductStatusRequest activación/inactivación en lote.
type SetProductStatusRequest struct {
	IDs    []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
	Active *bool   `json:"active" validate:"required"`
	Reason string  `json:"reason" validate:"max=300"`
}

// ProductListRequest query de GET /api/products.
type ProductListRequest struct {
	Query           string `query:"q"`
	IncludeInactive bool   `query:"include_inactive"`
	PageRequest
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	QtyCanoas          int        `json:"qty_canoas"`
	QtyPF              int        `json:"qty_pf"`
	Total              int        `json:"total"`
	Note               string     `json:"note"`
	Active             bool       `json:"active"`
	DeactivatedAt      *time.Time `json:"deactivated_at,omitempty"`
	DeactivationReason string     `json:"deactivation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// SetProductStatusResponse filas cambiadas.
type SetProductStatusResponse struct {
	Updated int `json:"updated"`
}

// NewProductResponse mapea la entidad.
func NewProductResponse(p *entity.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		QtyCanoas:          p.QtyCanoas,
		QtyPF:              p.QtyPF,
		Total:              p.Total(),
		Note:               p.Note,
		Active:             p.Active,
		DeactivatedAt:      p.DeactivatedAt,
		DeactivationReason: p.DeactivationReason,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
