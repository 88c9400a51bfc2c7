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
	"golang.org/x/time/rate"

	"github.com/logboard/api/internal/client"
	"github.com/logboard/api/internal/config"
	"github.com/logboard/api/internal/handler"
	"github.com/logboard/api/internal/middleware"
	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/internal/store"
	"github.com/logboard/api/internal/worker"
	ws "github.com/logboard/api/internal/websocket"
	"github.com/logboard/api/pkg/response"
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

	// Initialize Asynq client and inspector
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize blob storage (falls back to local directory)
	var storageClient client.StorageClient
	var localStorage *client.LocalClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		storageClient = r2Client
	} else {
		baseURL := cfg.Storage.PublicURL
		if baseURL == "" {
			baseURL = "http://localhost:" + cfg.Server.Port
		}
		localStorage, err = client.NewLocalClient(cfg.Storage.LocalDir, baseURL)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		storageClient = localStorage
		log.Println("Info: object storage not configured, using local directory")
	}

	// Initialize stats store (falls back to in-memory)
	var statsStore store.StatsStore
	if cfg.Database.URL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize stats store: %v", err)
		}
		defer pgStore.Close()
		statsStore = pgStore
	} else {
		statsStore = store.NewMemoryStore()
		log.Println("Info: DATABASE_URL not set, stats are kept in memory")
	}

	// Initialize services
	ingestService := service.NewIngestService(redisClient, asynqClient, inspector, &cfg.Ingest)
	uploadService := service.NewUploadService(storageClient, ingestService)
	statsService := service.NewStatsService(statsStore)

	// Initialize handlers
	logsHandler := handler.NewLogsHandler(uploadService)
	jobsHandler := handler.NewJobsHandler(ingestService, validate)
	statsHandler := handler.NewStatsHandler(statsService)
	authHandler := handler.NewAuthHandler(cfg.JWT.Secret)

	// Initialize middleware
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind the proxy: auth is handled by ForwardAuth, read X-User-* headers
		log.Println("Info: Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		apiAuthMiddleware = middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
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
				"redis":    redisClient.Ping(c.Context()).Err() == nil,
				"storage":  localStorage == nil,
				"database": cfg.Database.URL != "",
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by the proxy)
	app.Get("/auth/verify", authHandler.Verify)

	// Local storage fallback route
	if localStorage != nil {
		filesHandler := handler.NewFilesHandler(localStorage)
		app.Get("/files/:fileId", filesHandler.Get)
	}

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	logs := api.Group("/logs", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour))
	logs.Post("/upload", logsHandler.Upload)

	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.EnqueueLimit(cfg.RateLimit.EnqueuePerMin), jobsHandler.Enqueue)
	jobs.Get("/", jobsHandler.List)
	jobs.Get("/:jobId", jobsHandler.Get)

	api.Get("/queue/status", jobsHandler.QueueStatus)

	statsGroup := api.Group("/stats")
	statsGroup.Get("/", statsHandler.List)
	statsGroup.Get("/summary", statsHandler.Summary)
	statsGroup.Get("/:jobId", statsHandler.Get)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/live-stats", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, ingestService, statsStore, hub)

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
	ingestService *service.IngestService,
	statsStore store.StatsStore,
	hub *ws.Hub,
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
			Concurrency: cfg.Ingest.Concurrency,
			// Small files are dispatched strictly ahead of large ones
			Queues: map[string]int{
				service.QueueSmall: 2,
				service.QueueLarge: 1,
			},
			StrictPriority: true,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: base delay doubling per attempt
				return cfg.Ingest.RetryBaseDelay << n
			},
			LogLevel: asynqLogLevel,
		},
	)

	logWorker := worker.NewLogWorker(ingestService, statsStore, hub, &cfg.Ingest)

	mux := asynq.NewServeMux()
	mux.Use(dispatchRateLimit(cfg.Ingest.DispatchRatePerSec))
	mux.HandleFunc(service.TaskTypeLogProcess, logWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

// dispatchRateLimit caps total job dispatch throughput to protect
// downstream storage.
func dispatchRateLimit(perSec int) asynq.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(perSec), perSec)
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			return next.ProcessTask(ctx, t)
		})
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, message)
}
