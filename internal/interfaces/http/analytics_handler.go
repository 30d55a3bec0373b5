package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/analytics"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// AnalyticsHandler maneja los endpoints de analítica de stock.
type AnalyticsHandler struct {
	uc  *analytics.AnalyticsUseCase
	now func() time.Time
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.AnalyticsUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc, now: time.Now}
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	out, err := h.uc.StockSummary(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandler) Distribution(c *fiber.Ctx) error {
	out, err := h.uc.StockDistribution(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// TopExits godoc
// @Summary      Ranking de salidas netas de devoluciones
// @Tags         analytics
// @Produce      json
// @Param        start_date  query  string  false  "Inicio (YYYY-MM-DD). Default: hace 30 días."
// @Param        end_date    query  string  false  "Fin (YYYY-MM-DD). Default: hoy."
// @Param        scope       query  string  false  "CANOAS, PF o BOTH"
// @Param        limit       query  int     false  "Máx. productos (default 10, max 200)."
// @Success      200  {array}   dto.TopExitDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/analytics/top-exits [get]
func (h *AnalyticsHandler) TopExits(c *fiber.Ctx) error {
	p, err := h.period(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.uc.TopExits(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Flow entradas y salidas por día, semana o mes.
func (h *AnalyticsHandler) Flow(c *fiber.Ctx) error {
	p, err := h.period(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.uc.Flow(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandler) Evolution(c *fiber.Ctx) error {
	p, err := h.period(c)
	if err != nil {
		return respondError(c, err)
	}
	out, err := h.uc.StockEvolution(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Stale productos activos sin movimiento en los últimos days días (default 60).
func (h *AnalyticsHandler) Stale(c *fiber.Ctx) error {
	var in dto.StaleRequest
	if err := bindQuery(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.uc.StaleProducts(c.UserContext(), in.Days, h.now(), in.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandler) period(c *fiber.Ctx) (analytics.Period, error) {
	var req dto.PeriodRequest
	if err := bindQuery(c, &req); err != nil {
		return analytics.Period{}, err
	}
	return analytics.ResolvePeriod(req, h.now())
}
