package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pos-ledger/internal/activity"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/handler"
	"go-pos-ledger/internal/logger"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/seed"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/jwt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logger.Setup(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logger")
	}

	// 2. Setup Database
	db, err := database.Connect(database.Options{
		Driver:          cfg.Database.Driver,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}, logger.WithComponent("database"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	itemRepo := repository.NewItemRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	creditRepo := repository.NewCreditRepo(db)
	activityRepo := repository.NewActivityRepo(db)
	dashboardRepo := repository.NewDashboardRepo(db)

	// 3. Seed default roles and admin user
	if err := seed.Defaults(ctx, roleRepo, userRepo, seed.Admin{
		Email:    cfg.Seed.AdminEmail,
		Password: cfg.Seed.AdminPassword,
		Name:     cfg.Seed.AdminName,
	}, logger.WithComponent("seed")); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
	}

	// 4. Setup WebSocket Hub and the activity writer
	wsHub := ws.NewHub(logger.WithComponent("ws"))
	go wsHub.Run(ctx)

	recorder := activity.NewRecorder(activityRepo, activity.Options{
		QueueSize:    cfg.Activity.QueueSize,
		WriteTimeout: cfg.Activity.WriteTimeout,
	}, logger.WithComponent("activity"))
	recorder.Start()

	// 5. Dependency Injection (Wiring Layers)
	retry := database.RetryOptions{
		MaxRetries:  cfg.Ledger.MaxRetries,
		BaseBackoff: cfg.Ledger.BaseBackoff,
		MaxBackoff:  cfg.Ledger.MaxBackoff,
	}
	loc := cfg.Location()
	signer := jwt.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	ledgerLog := logger.WithComponent("ledger")

	authService := service.NewAuthService(userRepo, signer, recorder, wsHub, logger.WithComponent("auth"))
	ledgerService := service.NewLedgerService(creditRepo, saleRepo, retry, recorder, wsHub, ledgerLog)
	saleService := service.NewSaleService(db, itemRepo, saleRepo, creditRepo, retry, recorder, wsHub, ledgerLog)
	itemService := service.NewItemService(itemRepo, recorder, wsHub)
	dashService := service.NewDashboardService(dashboardRepo, creditRepo, itemRepo, loc)
	userService := service.NewUserService(userRepo, roleRepo, recorder)
	activityService := service.NewActivityService(activityRepo)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Credit:    handler.NewCreditHandler(ledgerService, loc),
		Sale:      handler.NewSaleHandler(saleService, loc),
		Item:      handler.NewItemHandler(itemService),
		Dashboard: handler.NewDashboardHandler(dashService, loc),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(userService),
		Activity:  handler.NewActivityHandler(activityService),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.AppName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	// 7. Routes
	handler.RegisterRoutes(app, authService, handlers)

	// WebSocket Route. Browsers cannot set headers on the upgrade, so the
	// token rides in the query string.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		if _, err := authService.Authenticate(c.UserContext(), c.Query("token")); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		select {
		case wsHub.Register <- c:
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case wsHub.Unregister <- c:
			case <-ctx.Done():
			}
		}()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Panic().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if err := recorder.Close(drainCtx); err != nil {
		log.Error().Err(err).Msg("activity log not fully flushed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
