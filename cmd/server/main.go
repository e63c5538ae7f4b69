package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/handler"
	"github.com/harmonygenie/api/internal/middleware"
	"github.com/harmonygenie/api/internal/poller"
	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/internal/wallet"
	"github.com/harmonygenie/api/internal/worker"
	ws "github.com/harmonygenie/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()

	// Initialize external clients
	agentClient := client.NewAgentClient(&cfg.Agent)
	piapiClient := client.NewPiAPIClient(&cfg.PiAPI)
	walletClient := client.NewWalletClient(&cfg.Chain)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, track archiving disabled")
	}

	if !piapiClient.IsConfigured() {
		log.Println("Info: PiAPI key not configured, using mock generation")
	}

	// Initialize polling
	taskPoller := poller.New(piapiClient, poller.Config{
		Interval:    time.Duration(cfg.PiAPI.PollInterval) * time.Second,
		MaxAttempts: cfg.PiAPI.MaxAttempts,
		RetryBudget: cfg.PiAPI.RetryBudget,
	})
	tracker := poller.NewTracker()

	// Initialize state stores and services
	walletStore := wallet.NewStore()
	conversationService := service.NewConversationService(agentClient)
	generationService := service.NewGenerationService(redisClient, asynqClient, piapiClient)
	mintService := service.NewMintService(walletStore, walletClient, conversationService, cfg.Chain)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg.JWT.Secret, cfg.JWT.Expiration)
	conversationHandler := handler.NewConversationHandler(conversationService, generationService, tracker, validate)
	generationHandler := handler.NewGenerationHandler(generationService)
	walletHandler := handler.NewWalletHandler(walletStore, validate)
	mintHandler := handler.NewMintHandler(mintService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB, chat payloads only
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"agent": agentClient.IsConfigured(),
				"piapi": piapiClient.IsConfigured(),
				"chain": walletClient.IsConfigured(),
				"r2":    r2Client != nil,
				"redis": redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})

	// Guest session issuance
	app.Post("/auth/session", authHandler.Session)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.Post("/", conversationHandler.Create)
	conversations.Get("/:conversationId", conversationHandler.Get)
	conversations.Post("/:conversationId/messages",
		rateLimiter.MessageLimit(cfg.RateLimit.MessagesPerMin),
		rateLimiter.GenerationLimit(cfg.RateLimit.GenerationsPerHour),
		conversationHandler.SendMessage)
	conversations.Post("/:conversationId/cancel", conversationHandler.Cancel)

	// Generation routes
	generation := api.Group("/generation")
	generation.Get("/status/:taskId", generationHandler.TaskStatus)
	generation.Get("/jobs/:jobId", generationHandler.JobStatus)
	generation.Get("/result/:jobId", generationHandler.Result)

	// Wallet routes
	walletGroup := api.Group("/wallet")
	walletGroup.Get("/", walletHandler.State)
	walletGroup.Post("/connect", walletHandler.Connect)
	walletGroup.Post("/disconnect", walletHandler.Disconnect)

	// Mint routes
	mint := api.Group("/mint", rateLimiter.MintLimit(cfg.RateLimit.MintsPerHour))
	mint.Post("/", mintHandler.Mint)
	mint.Get("/:mintId", mintHandler.Get)
	mint.Post("/:mintId/reset", mintHandler.Reset)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/conversations/:conversationId", websocket.New(func(c *websocket.Conn) {
		conversationID := c.Params("conversationId")
		hub.HandleConnection(c, conversationID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, generationService, conversationService, piapiClient, r2Client, hub, taskPoller, tracker)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	generationService *service.GenerationService,
	conversationService *service.ConversationService,
	piapiClient *client.PiAPIClient,
	r2Client *client.R2Client,
	hub *ws.Hub,
	taskPoller *poller.Poller,
	tracker *poller.Tracker,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"generate": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	var storage client.StorageClient
	if r2Client != nil {
		storage = r2Client
	}

	generationWorker := worker.NewGenerationWorker(
		generationService,
		conversationService,
		piapiClient,
		storage,
		hub,
		taskPoller,
		tracker,
		time.Duration(cfg.PiAPI.WarmupDelay)*time.Second,
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGenerate, generationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
