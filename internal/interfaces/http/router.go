package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/analytics"
	"github.com/jhoicas/stock-ledger/internal/application/backup"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName string
	ProductUC   *usecase.ProductUseCase
	Movements   *inventory.MovementUseCase
	Reconciler  *inventory.ReconcilerUseCase
	AnalyticsUC *analytics.AnalyticsUseCase
	Backups     *backup.Manager
	Scheduler   *backup.Scheduler
	Gatherer    prometheus.Gatherer // nil = sin /metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Post("/status", productHandler.SetStatus)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	// Movements
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Movements)
	movements.Post("/", movementHandler.Create)
	movements.Get("/", movementHandler.List)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Get("/:id/returnable", movementHandler.Returnable)

	// Inventory sessions
	sessions := api.Group("/inventory/sessions")
	inventoryHandler := NewInventoryHandler(deps.Reconciler)
	sessions.Post("/", inventoryHandler.CreateSession)
	sessions.Get("/", inventoryHandler.ListSessions)
	sessions.Get("/:id", inventoryHandler.GetSession)
	sessions.Get("/:id/counts", inventoryHandler.ListCounts)
	sessions.Put("/:id/counts", inventoryHandler.UpdateCounts)
	sessions.Post("/:id/apply", inventoryHandler.Apply)

	// Analytics
	an := api.Group("/analytics")
	analyticsHandler := NewAnalyticsHandler(deps.AnalyticsUC)
	an.Get("/summary", analyticsHandler.Summary)
	an.Get("/distribution", analyticsHandler.Distribution)
	an.Get("/top-exits", analyticsHandler.TopExits)
	an.Get("/flow", analyticsHandler.Flow)
	an.Get("/evolution", analyticsHandler.Evolution)
	an.Get("/stale", analyticsHandler.Stale)

	// Backups (las rutas fijas antes de /:name)
	backups := api.Group("/backups")
	backupHandler := NewBackupHandler(deps.Backups, deps.Scheduler)
	backups.Get("/", backupHandler.List)
	backups.Post("/", backupHandler.Create)
	backups.Get("/validate", backupHandler.Validate)
	backups.Get("/schedule", backupHandler.GetSchedule)
	backups.Put("/schedule", backupHandler.UpdateSchedule)
	backups.Post("/schedule/run", backupHandler.RunSchedule)
	backups.Post("/:name/restore", backupHandler.Restore)
	backups.Post("/:name/test-restore", backupHandler.TestRestore)
	backups.Delete("/:name", backupHandler.Delete)
}
