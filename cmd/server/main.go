package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tablewise/seating/internal/cache"
	"github.com/tablewise/seating/internal/capacity"
	"github.com/tablewise/seating/internal/config"
	"github.com/tablewise/seating/internal/database"
	"github.com/tablewise/seating/internal/handler"
	"github.com/tablewise/seating/internal/logger"
	"github.com/tablewise/seating/internal/repository"
	"github.com/tablewise/seating/internal/service"
	"github.com/tablewise/seating/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.App.Environment, cfg.App.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("Starting seating engine...")

	ctx := context.Background()

	// Telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	// PostgreSQL
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Redis for the settings read-through cache. The engine works without it,
	// every settings read just falls through to PostgreSQL.
	var redisClient *cache.Client
	redisClient, err = cache.NewClient(ctx, &cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis connection failed, settings cache disabled: %v", err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(&service.EventPublisherConfig{
			Brokers:         cfg.Kafka.Brokers,
			ClientID:        cfg.Kafka.ClientID,
			AllocationTopic: cfg.Kafka.AllocationTopic,
		}, appLog)
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Repositories
	settingsRepo := repository.NewCachedSettingsRepository(db.Pool(), redisClient, cfg.Allocation.SettingsCacheTTL)
	floorplanRepo := repository.NewCachedFloorplanRepository(
		repository.NewPostgresFloorplanRepository(db.Pool()),
		redisClient,
		cfg.Allocation.SettingsCacheTTL,
	)
	recordRepo := repository.NewPostgresAllocationRecordRepository(db.Pool())
	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	capacityRepo := repository.NewPostgresCapacityRepository(db.Pool())

	// Services
	warned := capacity.NewWarnedKeys(cfg.Allocation.WarnTTL, cfg.Allocation.WarnMaxEntries)
	allocationService := service.NewAllocationService(settingsRepo, floorplanRepo, recordRepo, eventPublisher, appLog)
	capacityService := service.NewCapacityService(db, bookingRepo, capacityRepo, eventPublisher, warned, appLog)

	// Handlers
	allocationHandler := handler.NewAllocationHandler(allocationService)
	capacityHandler := handler.NewCapacityHandler(capacityService)
	var cacheChecker handler.HealthChecker
	if redisClient != nil {
		cacheChecker = redisClient
	}
	healthHandler := handler.NewHealthHandler(db, cacheChecker)

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": cfg.App.Name,
			})
		})

		v1.POST("/allocations/suggest", allocationHandler.Suggest)
		v1.POST("/capacity/apply", capacityHandler.ApplyLedger)
		v1.GET("/capacity/:date", capacityHandler.GetCapacity)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Seating engine listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
