package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/catalog"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/events"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly timetable generation over rooms, session demands and blocked slots
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(cfg.Database, cfg.Database.MigrationsDir); err != nil {
			logr.Fatal("migrations failed", zap.Error(err))
		}
		logr.Info("migrations applied", zap.String("dir", cfg.Database.MigrationsDir))
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}
	var cacheBackend service.CacheRepository
	if cacheRepo != nil {
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metrics, cfg.Scheduler.ResultCacheTTL, logr, cacheRepo != nil)

	validator := validation.New()
	calendar := service.DefaultSlotCalendar()
	engine := service.NewPlacementEngine(service.EngineConfig{
		Calendar: calendar,
		Rooms: service.RoomMatcherConfig{
			TutorialRoomCeiling: cfg.Scheduler.TutorialRoomCeiling,
			LabRoomCeiling:      cfg.Scheduler.LabRoomCeiling,
		},
	}, validator, logr)

	roomRepo := repository.NewRoomRepository(db)
	sessionRepo := repository.NewSessionDemandRepository(db)
	blockedRepo := repository.NewBlockedSlotRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)

	publisher := events.New(cfg.Events.Enabled, cfg.Events.AMQPURL, cfg.Events.Queue, logr)

	timetableSvc := service.NewTimetableService(engine, timetableRepo, roomRepo, sessionRepo, blockedRepo, db,
		cacheSvc, metrics, publisher, validator, logr, service.TimetableServiceConfig{
			ResultCacheTTL: cfg.Scheduler.ResultCacheTTL,
			QueueBuffer:    cfg.Scheduler.QueueBuffer,
			WorkerRetries:  cfg.Scheduler.WorkerRetries,
		})
	catalogSvc := service.NewCatalogService(roomRepo, sessionRepo, db, validator, logr)
	blockedSvc := service.NewBlockedSlotService(blockedRepo, calendar, validator, logr)
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret, Expiration: cfg.JWT.Expiration}, logr)

	exportSvc, err := newExportService(cfg, timetableRepo, calendar, validator, logr)
	if err != nil {
		logr.Fatal("failed to init exports", zap.Error(err))
	}

	if cfg.Scheduler.Enabled {
		timetableSvc.Start(ctx)
		defer timetableSvc.Stop()
	}
	exportSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db.PingContext, cacheRepo))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Timetable:    handler.NewTimetableHandler(timetableSvc, exportSvc),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		BlockedSlots: handler.NewBlockedSlotHandler(blockedSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
}

func newExportService(cfg *config.Config, runs *repository.TimetableRepository, calendar service.SlotCalendar, validator *validation.Validator, logr *zap.Logger) (*service.ExportService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	secret := cfg.Exports.SignedURLSecret
	if secret == "" {
		if secret, err = storage.DeriveSecret(cfg.JWT.Secret, "timetable-exports"); err != nil {
			return nil, err
		}
	}
	delim, err := catalog.ParseDelimiter(cfg.Exports.CSVDelimiter)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(secret, cfg.Exports.SignedURLTTL)
	return service.NewExportService(runs, calendar, files, signer, validator, logr, service.ExportServiceConfig{
		DownloadPrefix: cfg.APIPrefix + "/exports/",
		CSVDelimiter:   delim,
	}), nil
}

func readinessChecks(pingDB func(context.Context) error, cacheRepo *repository.CacheRepository) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{"postgres": pingDB}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}
	return checks
}
