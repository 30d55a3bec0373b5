package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// BackupHandler snapshots, restauración y agendamiento del backup automático.
type BackupHandler struct {
	manager   *backup.Manager
	scheduler *backup.Scheduler
}

// NewBackupHandler construye el handler. scheduler se usa para la ejecución manual
// del agendamiento, así la corrida queda en las mismas métricas que el loop.
func NewBackupHandler(manager *backup.Manager, scheduler *backup.Scheduler) *BackupHandler {
	return &BackupHandler{manager: manager, scheduler: scheduler}
}

func (h *BackupHandler) List(c *fiber.Ctx) error {
	list, err := h.manager.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.SnapshotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.NewSnapshotResponse(s))
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear snapshot manual
// @Tags         backups
// @Produce      json
// @Success      201  {object}  dto.SnapshotResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/backups [post]
func (h *BackupHandler) Create(c *fiber.Ctx) error {
	s, err := h.manager.CreateSnapshot(c.UserContext(), entity.SnapshotManual)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSnapshotResponse(s))
}

// Validate ?name=<snapshot>; sin name valida la base viva.
func (h *BackupHandler) Validate(c *fiber.Ctx) error {
	name := c.Query("name")
	rep, err := h.manager.ValidateSnapshot(c.UserContext(), name)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ValidationResponse{Name: name, OK: rep.OK, Detail: rep.Detail})
}

// Restore godoc
// @Summary      Restaurar snapshot
// @Description  Valida el snapshot, toma un PRE_RESTORE de seguridad, copia en caliente y
//
//	revalida. Si la revalidación falla se reinstala el PRE_RESTORE.
//
// @Tags         backups
// @Produce      json
// @Param        name  path  string  true  "Nombre del snapshot"
// @Success      200   {object}  dto.SnapshotResponse  "snapshot de seguridad tomado antes de restaurar"
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/backups/{name}/restore [post]
func (h *BackupHandler) Restore(c *fiber.Ctx) error {
	safety, err := h.manager.Restore(c.UserContext(), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSnapshotResponse(safety))
}

// TestRestore restaura en una base temporal y reporta; la base viva no se toca.
func (h *BackupHandler) TestRestore(c *fiber.Ctx) error {
	rep, err := h.manager.TestRestore(c.UserContext(), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TestRestoreResponse{
		Name:         rep.Name,
		OK:           rep.OK,
		Detail:       rep.Detail,
		ProductCount: rep.ProductCount,
	})
}

func (h *BackupHandler) Delete(c *fiber.Ctx) error {
	if err := h.manager.Delete(c.UserContext(), c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BackupHandler) GetSchedule(c *fiber.Ctx) error {
	cfg, err := h.manager.GetSchedule(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewScheduleResponse(cfg))
}

func (h *BackupHandler) UpdateSchedule(c *fiber.Ctx) error {
	var in dto.ScheduleRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, err)
	}
	cfg, err := h.manager.UpdateSchedule(c.UserContext(), in.ToEntity())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewScheduleResponse(cfg))
}

// RunSchedule evalúa el agendamiento ahora; respeta las mismas reglas que el loop.
func (h *BackupHandler) RunSchedule(c *fiber.Ctx) error {
	res, err := h.scheduler.TriggerOnce(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RunResultResponse{
		Executed: res.Executed,
		Reason:   res.Reason,
		Snapshot: res.Snapshot,
		Removed:  res.Removed,
	})
}
