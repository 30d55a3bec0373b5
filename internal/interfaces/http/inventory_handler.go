package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryHandler sesiones de conteo físico y su aplicación como ajustes.
type InventoryHandler struct {
	uc *inventory.ReconcilerUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.ReconcilerUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// CreateSession godoc
// @Summary      Abrir sesión de inventario
// @Description  Congela el saldo del sistema de cada producto activo en la ubicación.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSessionRequest  true  "Nombre y ubicación"
// @Success      201   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/sessions [post]
func (h *InventoryHandler) CreateSession(c *fiber.Ctx) error {
	var in dto.CreateSessionRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	s, err := h.uc.CreateSession(c.UserContext(), in.Name, in.Location, in.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSessionResponse(s))
}

func (h *InventoryHandler) GetSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	s, err := h.uc.GetSession(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSessionResponse(s))
}

func (h *InventoryHandler) ListSessions(c *fiber.Ctx) error {
	var in dto.PageRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	list, total, err := h.uc.ListSessions(c.UserContext(), in.Limit, in.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.SessionResponse, 0, len(list))
	for _, s := range list {
		items = append(items, dto.NewSessionResponse(s))
	}
	return c.JSON(dto.SessionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	})
}

// ListCounts conteos de la sesión; only_divergent=true filtra los que difieren.
func (h *InventoryHandler) ListCounts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.CountListRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	list, total, err := h.uc.ListCounts(c.UserContext(), id, in.OnlyDivergent, in.Limit, in.Offset)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.CountResponse, 0, len(list))
	for _, cnt := range list {
		items = append(items, dto.NewCountResponse(cnt))
	}
	return c.JSON(dto.CountListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	})
}

// UpdateCounts godoc
// @Summary      Registrar conteos físicos
// @Description  Divergencia distinta de cero exige motivo. Sólo en sesiones OPEN.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID de la sesión"
// @Param        body  body  dto.UpdateCountsRequest  true  "Conteos"
// @Success      200   {object}  dto.SessionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/sessions/{id}/counts [put]
func (h *InventoryHandler) UpdateCounts(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.UpdateCountsRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	items := make([]entity.CountItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.CountItem{
			ProductID:   it.ProductID,
			PhysicalQty: *it.PhysicalQty,
			Reason:      it.Reason,
			Note:        it.Note,
		})
	}
	s, err := h.uc.UpdateCounts(c.UserContext(), id, items)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSessionResponse(s))
}

// Apply convierte las divergencias en ajustes y cierra la sesión (todo o nada).
func (h *InventoryHandler) Apply(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.ApplySessionRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &in); err != nil {
			return respondError(c, err)
		}
	}
	res, err := h.uc.ApplySessionAdjustments(c.UserContext(), id, in.Note)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.ApplySessionResponse{
		Session:   dto.NewSessionResponse(res.Session),
		Movements: make([]dto.MovementResponse, 0, len(res.Movements)),
	}
	for _, m := range res.Movements {
		out.Movements = append(out.Movements, dto.NewMovementResponse(m))
	}
	return c.JSON(out)
}
