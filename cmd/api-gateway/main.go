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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/uniclinic/clinic-api/api/swagger"
	"github.com/uniclinic/clinic-api/internal/handler"
	"github.com/uniclinic/clinic-api/internal/middleware"
	"github.com/uniclinic/clinic-api/internal/models"
	"github.com/uniclinic/clinic-api/internal/repository"
	"github.com/uniclinic/clinic-api/internal/scheduler"
	"github.com/uniclinic/clinic-api/internal/service"
	"github.com/uniclinic/clinic-api/pkg/cache"
	"github.com/uniclinic/clinic-api/pkg/config"
	"github.com/uniclinic/clinic-api/pkg/database"
	"github.com/uniclinic/clinic-api/pkg/lock"
	"github.com/uniclinic/clinic-api/pkg/logger"
	corsmiddleware "github.com/uniclinic/clinic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uniclinic/clinic-api/pkg/middleware/requestid"
)

// @title UniClinic API
// @version 1.0.0
// @description Campus clinic backend: availability windows, slot generation and appointment booking
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
	sugar := logr.Sugar()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var slotLocker lock.SlotLocker = lock.NoopSlotLocker{}
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Booking stays correct without Redis; the DB claim is the
		// authority. The lock only absorbs stampedes.
		sugar.Warnw("redis unavailable, continuing without slot locking", "error", err)
	} else {
		defer redisClient.Close()
		slotLocker = lock.NewRedisSlotLocker(redisClient, cfg.Scheduling.SlotLockTTL)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	availabilityRepo := repository.NewAvailabilityRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	visitRepo := repository.NewVisitRepository(db)

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, validate, logr)
	slotSvc := service.NewSlotService(slotRepo, availabilityRepo, validate, logr)
	generatorSvc := service.NewSlotGeneratorService(availabilityRepo, slotRepo, db, metricsSvc, logr, cfg.Scheduling.SlotDuration)
	bookingSvc := service.NewBookingService(slotRepo, visitRepo, db, slotLocker, metricsSvc, validate, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	slotHandler := handler.NewSlotHandler(slotSvc, bookingSvc)
	visitHandler := handler.NewVisitHandler(bookingSvc)
	opsHandler := handler.NewOpsHandler(generatorSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))
	{
		api.GET("/slots", slotHandler.List)
		api.POST("/slots/:id/claim", middleware.RequireRoles(models.RoleStudent), slotHandler.Claim)
		api.GET("/visits", visitHandler.List)

		doctor := api.Group("/doctor", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin))
		{
			doctor.GET("/availabilities", availabilityHandler.List)
			doctor.POST("/availabilities", availabilityHandler.Create)
			doctor.PATCH("/availabilities/:id", availabilityHandler.Update)
			doctor.DELETE("/availabilities/:id", availabilityHandler.Delete)

			doctor.POST("/slots", slotHandler.CreateManual)
			doctor.POST("/slots/:id/cancel", slotHandler.Cancel)

			doctor.POST("/visits", visitHandler.Create)
			doctor.POST("/visits/:id/complete", visitHandler.Complete)
		}

		admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/ops/generate-slots", opsHandler.Generate)
			admin.POST("/ops/cleanup-slots", opsHandler.Cleanup)
		}
	}

	var driver *scheduler.Driver
	if cfg.Scheduling.Enabled {
		driver = scheduler.New(generatorSvc, scheduler.Config{
			GenerateWeekday: cfg.Scheduling.GenerateWeekday,
			GenerateAt:      cfg.Scheduling.GenerateAt,
			CleanupAt:       cfg.Scheduling.CleanupAt,
			RunTimeout:      cfg.Scheduling.RunTimeout,
		}, metricsSvc, logr)
		driver.Start(context.Background())
	} else {
		sugar.Infow("background scheduling disabled")
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down")
	if driver != nil {
		driver.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("forced shutdown", "error", err)
	}
	sugar.Infow("server stopped")
}
