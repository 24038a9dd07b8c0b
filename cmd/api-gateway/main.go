package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Offline weekly timetable generator with persistence and exports.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	var (
		db         *sqlx.DB
		timetables *repository.TimetableRepository
		entries    *repository.TimetableEntryRepository
	)
	if cfg.Persistence.Enabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(db, logr); err != nil {
				logr.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		timetables = repository.NewTimetableRepository(db)
		entries = repository.NewTimetableEntryRepository(db)
		checks["postgres"] = db
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
		} else {
			client := redisClient
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
		}
	}
	cacheRepo := repository.NewCacheRepository(nilSafeClient(redisClient), logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	timetableSvc := newTimetableService(cfg, db, timetables, entries, cacheSvc, metricsSvc, logr)
	exportSvc, pool := newExportService(ctx, cfg, timetableSvc, metricsSvc, logr)
	if pool != nil {
		defer pool.Stop()
	}

	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Scheduler.Enabled {
		handler.RegisterRoutes(r.Group(cfg.APIPrefix),
			handler.NewTimetableHandler(timetableSvc),
			handler.NewExportHandler(exportSvc),
			handler.RouteConfig{AuthEnabled: cfg.JWT.Enabled, Validator: tokenSvc, Logger: logr},
		)
	} else {
		logr.Warn("timetable endpoints disabled by ENABLE_SCHEDULER")
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newTimetableService(
	cfg *config.Config,
	db *sqlx.DB,
	timetables *repository.TimetableRepository,
	entries *repository.TimetableEntryRepository,
	cacheSvc *service.CacheService,
	metricsSvc *service.MetricsService,
	logr *zap.Logger,
) *service.TimetableService {
	svcCfg := service.TimetableServiceConfig{
		ProposalTTL:      cfg.Scheduler.ProposalTTL,
		CacheTTL:         cfg.Scheduler.CacheTTL,
		MaxWorkUnits:     cfg.Scheduler.MaxWorkUnits,
		MaxConsecutive:   cfg.Scheduler.MaxConsecutive,
		AvailabilityMode: scheduler.AvailabilityMode(cfg.Scheduler.AvailabilityMode),
		Persistence:      db != nil,
	}
	validate := validator.New()
	if db == nil {
		return service.NewTimetableService(nil, nil, nil, cacheSvc, metricsSvc, validate, logr, svcCfg)
	}
	return service.NewTimetableService(timetables, entries, db, cacheSvc, metricsSvc, validate, logr, svcCfg)
}

func newExportService(ctx context.Context, cfg *config.Config, documents *service.TimetableService, metricsSvc *service.MetricsService, logr *zap.Logger) (*service.ExportService, *jobs.Pool[service.ExportTask]) {
	exportCfg := service.ExportConfig{APIPrefix: cfg.APIPrefix, LinkTTL: cfg.Exports.SignedURLTTL, MaxRetries: cfg.Exports.WorkerRetries}

	files, err := storage.NewFileStore(cfg.Exports.StorageDir)
	if err != nil {
		logr.Warn("export storage unavailable, signed links disabled", zap.Error(err))
		return service.NewExportService(documents, nil, nil, metricsSvc, exportCfg, logr), nil
	}
	signer := storage.NewLinkSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	svc := service.NewExportService(documents, files, signer, metricsSvc, exportCfg, logr)

	pool := jobs.NewPool[service.ExportTask]("exports", svc.HandleTask, jobs.Config{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	pool.Start(ctx)
	svc.UseQueue(pool)

	go func() {
		interval := cfg.Exports.CleanupInterval
		if interval <= 0 {
			interval = time.Hour
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				svc.Cleanup()
			}
		}
	}()

	return svc, pool
}

func nilSafeClient(client *redis.Client) redis.UniversalClient {
	if client == nil {
		return nil
	}
	return client
}
