package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementHandler maneja el registro y la consulta de movimientos de stock.
type MovementHandler struct {
	uc *inventory.MovementUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(uc *inventory.MovementUseCase) *MovementHandler {
	return &MovementHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar movimiento
// @Description  ENTRY usa destination, EXIT usa origin y TRANSFER ambos. Saldo, histórico y
//
//	ledger se confirman en la misma transacción.
//
// @Tags         movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateMovementRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	m, err := h.uc.CreateMovement(c.UserContext(), inventory.MovementInput{
		Type:                in.Type,
		ProductID:           in.ProductID,
		Quantity:            in.Quantity,
		Origin:              in.Origin,
		Destination:         in.Destination,
		Nature:              in.Nature,
		Reason:              in.Reason,
		ExternalLocation:    in.ExternalLocation,
		Document:            in.Document,
		ReferenceMovementID: in.ReferenceMovementID,
		Note:                in.Note,
		OccurredAt:          in.OccurredAt,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponse(m))
}

// GetByID godoc
// @Summary      Obtener movimiento
// @Tags         movements
// @Produce      json
// @Param        id   path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [get]
func (h *MovementHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	m, err := h.uc.GetMovement(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewMovementResponse(m))
}

// List movimientos filtrados por producto, tipo, naturaleza, ubicación y rango de fechas.
func (h *MovementHandler) List(c *fiber.Ctx) error {
	var in dto.MovementListRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	f, err := movementFilter(in)
	if err != nil {
		return respondError(c, err)
	}
	list, total, err := h.uc.ListMovements(c.UserContext(), f)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.NewMovementResponse(m))
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	})
}

// Returnable cantidad que todavía se puede devolver de una salida.
func (h *MovementHandler) Returnable(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	n, err := h.uc.ReturnableQuantity(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReturnableResponse{MovementID: id, Returnable: n})
}

func movementFilter(in dto.MovementListRequest) (entity.MovementFilter, error) {
	f := entity.MovementFilter{Limit: in.Limit, Offset: in.Offset}
	if in.ProductID > 0 {
		id := in.ProductID
		f.ProductID = &id
	}
	if in.Type != "" {
		t, ok := entity.ParseMovementType(in.Type)
		if !ok {
			return f, domain.NewValidation("tipo inválido %q", in.Type)
		}
		f.Type = t
	}
	if in.Nature != "" {
		n, ok := entity.ParseNature(in.Nature)
		if !ok {
			return f, domain.NewValidation("naturaleza inválida %q", in.Nature)
		}
		f.Nature = n
	}
	if in.Location != "" {
		loc, ok := entity.ParseLocation(in.Location)
		if !ok {
			return f, domain.NewValidation("ubicación inválida %q", in.Location)
		}
		f.Location = loc
	}
	if in.From != "" {
		t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.From), time.Local)
		if err != nil {
			return f, domain.NewValidation("from inválida, use YYYY-MM-DD")
		}
		f.From = &t
	}
	if in.To != "" {
		t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.To), time.Local)
		if err != nil {
			return f, domain.NewValidation("to inválida, use YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Second)
		f.To = &end
	}
	return f, nil
}
