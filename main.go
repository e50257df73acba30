package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/database"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/config"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/handlers"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/jobs"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/routes"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/services"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

const version = "1.0.0"

func main() {
	// .env is for local development; deployed environments inject real env vars.
	_ = godotenv.Load(".env")

	config.LoadConfig()
	utils.InitializeLogger()
	log := utils.GetLogger()
	defer log.Sync()

	cfg := config.AppConfig

	// Storage
	var store storage.Store
	if cfg.UseMemoryStore {
		log.Warn("using in-memory storage, not for production")
		store = storage.NewMemoryStore()
	} else {
		database.Connect()
		if err := database.DB.AutoMigrate(
			&models.Tenant{},
			&models.Service{},
			&models.Session{},
			&models.Booking{},
		); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
		store = storage.NewDatabaseStore(database.DB)
		log.Info("using PostgreSQL storage")
	}
	storage.SetStore(store)

	// Redis: tenant cache + asynq broker.
	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisCacheDB,
	})
	queueOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}

	// Core services
	directory := services.NewTenantDirectory(store, cache, time.Duration(cfg.TenantCacheTTLSec)*time.Second)
	sessions := services.NewSessionService(store)
	availability := services.NewScheduleAvailability(store, nil)
	ledger := services.NewStoreLedger(store)
	engine := services.NewDialogueEngine(store, sessions, directory, availability, ledger, cfg.AvailabilityDays)

	// Outbound WhatsApp. Without credentials the worker logs replies instead.
	var messenger services.Messenger
	if twilioSvc, err := services.NewTwilioService(); err != nil {
		log.Warn("Twilio not configured, replies will be logged only", zap.Error(err))
	} else {
		messenger = twilioSvc
		log.Info("Twilio service initialized")
	}

	// Dialogue worker + retention sweep, decoupled from webhook acks.
	worker := jobs.NewWorker(queueOpt, engine, sessions, messenger, cfg.WorkerConcurrency, cfg.SessionRetentionDays)
	if err := worker.Start(); err != nil {
		log.Fatal("failed to start dialogue worker", zap.Error(err))
	}

	queue := asynq.NewClient(queueOpt)
	defer queue.Close()

	// HTTP surface
	app := fiber.New(fiber.Config{
		AppName: "Milo Bookings v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	whatsappHandler := handlers.NewWhatsAppHandler(queue, engine)
	tenantHandler := handlers.NewTenantHandler(store, directory)
	bookingHandler := handlers.NewBookingHandler(store)
	adminHandler := handlers.NewAdminHandler(store, directory)
	healthHandler := handlers.NewHealthHandler(version)
	routes.SetupRoutes(app, whatsappHandler, tenantHandler, bookingHandler, adminHandler, healthHandler)

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		worker.Stop()
		_ = app.Shutdown()
	}()

	log.Info("Milo Bookings starting",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
