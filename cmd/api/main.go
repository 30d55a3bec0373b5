package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db", cfg.DB.Path).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar store")
		}
	}()

	// migración e importación antes de aceptar tráfico
	if err := app.Prepare(ctx); err != nil {
		log.Error().Err(err).Msg("preparar base de datos")
		os.Exit(1)
	}

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           time.Second * 10,
		WriteTimeout:          time.Second * 60, // restauraciones de snapshots grandes
		IdleTimeout:           time.Second * 60,
		DisableStartupMessage: cfg.App.Env != "development",
	})
	server.Use(recover.New())

	httpRouter.Router(server, httpRouter.RouterDeps{
		ServiceName: cfg.App.Name,
		ProductUC:   app.Products,
		Movements:   app.Movements,
		Reconciler:  app.Reconciler,
		AnalyticsUC: app.Analytics,
		Backups:     app.Backups,
		Scheduler:   app.Scheduler,
		Gatherer:    app.Registry,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Listen(cfg.HTTP.Addr()); err != nil {
			return err
		}
		return nil
	})
	if cfg.Backup.SchedulerEnabled {
		g.Go(func() error {
			return app.Scheduler.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("señal de apagado recibida, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("servicio finalizado con error")
	}
	log.Info().Msg("aplicación detenida")
}
