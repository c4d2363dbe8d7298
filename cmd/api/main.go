package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "dotaciones/api/swagger" // swagger docs
	"dotaciones/internal/cache"
	"dotaciones/internal/config"
	"dotaciones/internal/database"
	"dotaciones/internal/handler"
	"dotaciones/internal/middleware"
	"dotaciones/internal/model"
	"dotaciones/internal/repository"
	"dotaciones/internal/service"
	"dotaciones/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm/logger"
)

// @title           Dotaciones Yazz API
// @version         1.0
// @description     Clients, inventory, embroidery orders, payments and direct sales for an embroidery workshop.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	gormLevel := logger.Warn
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		gormLevel = logger.Silent
	}

	db, err := database.NewConnection(database.Options{
		Driver:      cfg.DBDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		LogLevel:    gormLevel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store cache.Store = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dashboard cache disabled")
		} else {
			defer rdb.Close()
			store = cache.NewRedisStore(rdb, "dotaciones:")
			log.Info().Msg("dashboard cache backed by redis")
		}
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	clientRepo := repository.NewClientRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services
	clientService := service.NewClientService(clientRepo, orderRepo, auditRepo, txManager)
	inventoryService := service.NewInventoryService(categoryRepo, productRepo, movementRepo, auditRepo, txManager, wsHub)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		OrderRepo:    orderRepo,
		ClientRepo:   clientRepo,
		ProductRepo:  productRepo,
		MovementRepo: movementRepo,
		PaymentRepo:  paymentRepo,
		StatsRepo:    statsRepo,
		AuditRepo:    auditRepo,
		TxManager:    txManager,
		Policy:       model.NewStatusPolicy(cfg.OrderAllowReactivation),
		Events:       wsHub,
		MediaDir:     cfg.MediaDir,
	})
	paymentService := service.NewPaymentService(orderRepo, paymentRepo, auditRepo, txManager, wsHub)
	saleService := service.NewSaleService(saleRepo, clientRepo, productRepo, movementRepo, auditRepo, txManager, wsHub)
	dashboardService := service.NewDashboardService(statsRepo, productRepo, clientRepo, store, cfg.DashboardCacheTTL)
	reportService := service.NewReportService(categoryRepo, productRepo, movementRepo, auditRepo, txManager, wsHub)
	roleService := service.NewRoleService(roleRepo, txManager)
	userService := service.NewUserService(userRepo, auditRepo, txManager, service.AuthSettings{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})
	auditService := service.NewAuditService(auditRepo)

	if err := roleService.SeedDefaultRolesAndPermissions(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles and permissions")
	}
	if err := userService.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed administrator")
	}

	auth := middleware.NewAuthenticator([]byte(cfg.JWTSecret), roleService, cfg.IsProduction())

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var pinger handler.Pinger
	if cfg.RedisURL != "" {
		pinger = store
	}
	handler.NewHealthHandler(db, pinger).RegisterRoutes(router.Group(""))

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret())
	})

	api := router.Group("")
	handler.NewUserHandler(userService, auth, cfg.RefreshTokenTTL()).RegisterRoutes(api, auth)
	handler.NewRoleHandler(roleService, auth).RegisterRoutes(api, auth)
	handler.NewAuditHandler(auditService).RegisterRoutes(api, auth)
	handler.NewClientHandler(clientService).RegisterRoutes(api, auth)
	handler.NewInventoryHandler(inventoryService).RegisterRoutes(api, auth)
	handler.NewOrderHandler(orderService).RegisterRoutes(api, auth)
	handler.NewPaymentHandler(paymentService).RegisterRoutes(api, auth)
	handler.NewSaleHandler(saleService).RegisterRoutes(api, auth)
	handler.NewDashboardHandler(dashboardService).RegisterRoutes(api, auth)
	handler.NewReportHandler(reportService).RegisterRoutes(api, auth)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	cancel()
	<-wsHub.Done()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
