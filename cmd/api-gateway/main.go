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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/drive-admin-api/api/swagger"
	"github.com/noah-isme/drive-admin-api/internal/handler"
	"github.com/noah-isme/drive-admin-api/internal/middleware"
	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/internal/repository"
	"github.com/noah-isme/drive-admin-api/internal/service"
	"github.com/noah-isme/drive-admin-api/pkg/cache"
	"github.com/noah-isme/drive-admin-api/pkg/config"
	"github.com/noah-isme/drive-admin-api/pkg/database"
	"github.com/noah-isme/drive-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/drive-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/drive-admin-api/pkg/middleware/requestid"
	"github.com/noah-isme/drive-admin-api/pkg/portal"
	"github.com/noah-isme/drive-admin-api/pkg/response"
	"github.com/noah-isme/drive-admin-api/pkg/storage"
)

// @title Drive Admin API
// @version 1.0.0
// @description Student registry reconciliation for a driving school
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

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
	response.ExposeErrorDetail(cfg.Env != config.EnvProduction)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}
	if len(applied) > 0 {
		logr.Info("migrations applied", zap.Strings("names", applied))
	}

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Statistics.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			checks["redis"] = redisPinger{client: redisClient}
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, cfg.Statistics.CacheEnabled)

	imageBlobs, err := storage.NewLocalStorage(cfg.Images.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare image storage", zap.Error(err))
	}
	images := storage.NewImageStore(imageBlobs, storage.ImageStoreConfig{
		PublicBaseURL: cfg.Images.PublicBaseURL,
		MaxBytes:      cfg.Images.MaxBytes,
		MaxWidth:      cfg.Images.MaxWidth,
		Quality:       cfg.Images.Quality,
	})
	exportArchive, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}

	vehiclePortal, err := portal.NewClient(cfg.Portal.BaseURL, cfg.Portal.Timeout)
	if err != nil {
		logr.Fatal("failed to init portal client", zap.Error(err))
	}

	validate := service.NewValidator()

	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	registryRepo := repository.NewRegistryRepository(db)

	notifier := service.NewNotificationService(service.NewLogMailer(logr), service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		Retries:    cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		AdminEmail: cfg.Notifications.AdminEmail,
	}, metricsSvc, logr)
	notifier.Start(ctx)

	authSvc := service.NewAuthService(accountRepo, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	accountSvc := service.NewAccountService(accountRepo, logr)
	profileSvc := service.NewProfileService(profileRepo, accountRepo, images, validate, logr)
	progressSvc := service.NewProgressService(progressRepo, accountRepo, service.ProgressDefaults{
		Rows:        cfg.Registry.GridRows,
		Columns:     cfg.Registry.GridColumns,
		VehicleType: models.VehicleCategory(cfg.Registry.DefaultCategory),
	}, validate, logr)
	paymentSvc := service.NewPaymentService(paymentRepo, accountRepo, images, validate, logr)
	registrySvc := service.NewRegistryService(service.RegistryDeps{
		Accounts: accountRepo,
		Profiles: profileRepo,
		Ledgers:  paymentRepo,
		Registry: registryRepo,
		Progress: progressRepo,
		Notifier: notifier,
		Cache:    cacheSvc,
		Metrics:  metricsSvc,
	}, service.RegistryConfig{
		CompletionThreshold: cfg.Registry.CompletionThreshold,
		DefaultCategory:     models.VehicleCategory(cfg.Registry.DefaultCategory),
	}, validate, logr)
	statsSvc := service.NewStatisticsService(registryRepo, cacheSvc, cfg.Statistics.CacheTTL, logr)
	exportSvc := service.NewExportService(registrySvc, exportArchive, logr)
	vehicleSvc := service.NewVehicleService(vehiclePortal, validate, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.Static("/uploads", imageBlobs.Dir())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Registry: handler.NewRegistryHandler(registrySvc, statsSvc, exportSvc),
		Accounts: handler.NewAccountHandler(accountSvc),
		Profile:  handler.NewProfileHandler(profileSvc),
		Progress: handler.NewProgressHandler(progressSvc),
		Payments: handler.NewPaymentHandler(paymentSvc),
		Vehicles: handler.NewVehicleHandler(vehicleSvc),
		Metrics:  metricsHandler,
	}, middleware.JWT(authSvc))

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
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if err := notifier.Stop(shutdownCtx); err != nil {
		logr.Warn("notification queue did not drain", zap.Error(err))
	}
}
