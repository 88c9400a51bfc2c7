package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/logboard/api/internal/auth"
	"github.com/logboard/api/internal/client"
	"github.com/logboard/api/internal/config"
	"github.com/logboard/api/internal/handler"
	"github.com/logboard/api/internal/middleware"
	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/internal/store"
	ws "github.com/logboard/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app identical to main.go but with local
// storage and the in-memory stats store. Requires a Redis on
// localhost:6379; tests are skipped when none is running.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost, DB 15 to avoid collision)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available on localhost:6379: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	redisOpt := asynq.RedisClientOpt{Addr: "localhost:6379", DB: 15}
	asynqClient := asynq.NewClient(redisOpt)
	t.Cleanup(func() { asynqClient.Close() })
	inspector := asynq.NewInspector(redisOpt)

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	localStorage, err := client.NewLocalClient(t.TempDir(), "http://localhost:3000")
	if err != nil {
		t.Fatalf("failed to set up local storage: %v", err)
	}
	statsStore := store.NewMemoryStore()

	ingestCfg := &config.IngestConfig{
		WatchKeywords:     []string{"error"},
		MaxAttempts:       3,
		PriorityThreshold: 1 << 20,
		JobTimeout:        time.Minute,
	}

	// Services
	ingestService := service.NewIngestService(redisClient, asynqClient, inspector, ingestCfg)
	uploadService := service.NewUploadService(localStorage, ingestService)
	statsService := service.NewStatsService(statsStore)

	// Handlers
	logsHandler := handler.NewLogsHandler(uploadService)
	jobsHandler := handler.NewJobsHandler(ingestService, validate)
	statsHandler := handler.NewStatsHandler(statsService)
	filesHandler := handler.NewFilesHandler(localStorage)
	authHandler := handler.NewAuthHandler(testJWTSecret)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":    true,
				"storage":  false,
				"database": false,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)
	app.Get("/files/:fileId", filesHandler.Get)

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	logs := api.Group("/logs", rateLimiter.UploadLimit(10000))
	logs.Post("/upload", logsHandler.Upload)

	jobs := api.Group("/jobs")
	jobs.Post("/", rateLimiter.EnqueueLimit(10000), jobsHandler.Enqueue)
	jobs.Get("/", jobsHandler.List)
	jobs.Get("/:jobId", jobsHandler.Get)

	api.Get("/queue/status", jobsHandler.QueueStatus)

	statsGroup := api.Group("/stats")
	statsGroup.Get("/", statsHandler.List)
	statsGroup.Get("/summary", statsHandler.Summary)
	statsGroup.Get("/:jobId", statsHandler.Get)

	return &testApp{app: app}
}

// generateToken creates an HMAC JWT for test requests
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken("test-user-123", "test@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path, body, contentType string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated JSON request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, "application/json", map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// parseJSONArray parses response body into a slice.
func parseJSONArray(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result []interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
