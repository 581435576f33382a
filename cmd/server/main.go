package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appsync "github.com/AudicoSA/audico-sync/internal/application/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/config"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/logger"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/persistence"
	"github.com/AudicoSA/audico-sync/internal/interfaces/http/handler"
	"github.com/AudicoSA/audico-sync/internal/interfaces/http/router"
	"github.com/AudicoSA/audico-sync/internal/suppliers"
)

// staleAfter is the sync age beyond which a supplier reports degraded on the
// health endpoint. Two missed daily runs is the operational alarm line.
const staleAfter = 48 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Audico sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	productRepo := persistence.NewGormProductRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)

	deps := suppliers.Deps{
		Products:  productRepo,
		Suppliers: supplierRepo,
		Sessions:  sessionRepo,
		Logger:    log,
	}

	built, err := suppliers.BuildFromConfig(cfg, deps)
	if err != nil {
		log.Fatal("Failed to build supplier adapters", zap.Error(err))
	}
	defer func() {
		for _, b := range built {
			b.Close()
		}
	}()
	if len(built) == 0 {
		log.Warn("No suppliers configured, the API will serve an empty catalog")
	}

	registry := appsync.NewRegistry()
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer seedCancel()
	for _, b := range built {
		if _, err := suppliers.EnsureSupplier(seedCtx, supplierRepo, b.Code, b.Name, b.SourceType); err != nil {
			log.Fatal("Failed to seed supplier row",
				zap.String("supplier", b.Code),
				zap.Error(err),
			)
		}
		registry.Register(b.Code, b.Adapter)
		log.Info("Supplier registered",
			zap.String("supplier", b.Code),
			zap.String("source_type", string(b.SourceType)),
		)
	}

	service := appsync.NewService(registry, log)

	reaper := appsync.NewStaleRunReaper(
		sessionRepo,
		supplierRepo,
		cfg.Sync.StaleRunTTL,
		cfg.Scheduler.ReaperInterval,
		log,
	)
	reaper.Start(context.Background())
	defer reaper.Stop()

	var sched *appsync.Scheduler
	if cfg.Scheduler.Enabled {
		sched = appsync.NewScheduler(appsync.SchedulerConfig{
			DailyHour:     cfg.Scheduler.DailyHour,
			DailyMinute:   cfg.Scheduler.DailyMinute,
			CheckInterval: cfg.Scheduler.CheckInterval,
			JobTimeout:    cfg.Scheduler.JobTimeout,
		}, service, log)
		sched.Start(context.Background())
		defer sched.Stop()
		log.Info("Daily scheduler enabled",
			zap.Int("hour", cfg.Scheduler.DailyHour),
			zap.Int("minute", cfg.Scheduler.DailyMinute),
		)
	}

	supplierHandler := handler.NewSupplierHandler(service, sessionRepo, log)
	systemHandler := handler.NewSystemHandler(service, staleAfter)

	engine := router.New(router.Config{
		Logger:     log,
		System:     systemHandler,
		Registrars: []router.RouteRegistrar{supplierHandler},
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
