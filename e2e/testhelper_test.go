package e2e

import (
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

	"github.com/harmonygenie/api/internal/auth"
	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/config"
	"github.com/harmonygenie/api/internal/handler"
	"github.com/harmonygenie/api/internal/middleware"
	"github.com/harmonygenie/api/internal/poller"
	"github.com/harmonygenie/api/internal/service"
	"github.com/harmonygenie/api/internal/wallet"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app    *fiber.App
	wallet *wallet.Store
}

// setupApp creates a Fiber app identical to main.go but with unconfigured
// external clients, so generation jobs queue without being processed and the
// agent fallback paths run.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// External clients — unreachable/unconfigured on purpose
	agentClient := client.NewAgentClient(&config.AgentConfig{
		BaseURL:        "http://localhost:59999",
		DefaultAgentID: "test-agent",
	})
	piapiClient := client.NewPiAPIClient(&config.PiAPIConfig{
		BaseURL: "http://localhost:59998",
	})
	walletClient := client.NewWalletClient(&config.ChainConfig{
		GatewayURL: "http://localhost:59997",
		ChainID:    "T",
	})

	chainCfg := config.ChainConfig{
		GatewayURL: "http://localhost:59997",
		ChainID:    "T",
		Collection: "MUSIC-abcdef",
		Royalties:  500,
		GasLimit:   60000000,
		GasPrice:   1000000000,
	}

	tracker := poller.NewTracker()

	walletStore := wallet.NewStore()
	conversationService := service.NewConversationService(agentClient)
	generationService := service.NewGenerationService(redisClient, asynqClient, piapiClient)
	mintService := service.NewMintService(walletStore, walletClient, conversationService, chainCfg)

	authHandler := handler.NewAuthHandler(testJWTSecret, 24)
	conversationHandler := handler.NewConversationHandler(conversationService, generationService, tracker, validate)
	generationHandler := handler.NewGenerationHandler(generationService)
	walletHandler := handler.NewWalletHandler(walletStore, validate)
	mintHandler := handler.NewMintHandler(mintService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"agent": true,
				"piapi": false,
				"chain": true,
				"r2":    false,
				"redis": redisClient.Ping(c.Context()).Err() == nil,
			},
		})
	})
	app.Post("/auth/session", authHandler.Session)

	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	conversations := api.Group("/conversations")
	conversations.Post("/", conversationHandler.Create)
	conversations.Get("/:conversationId", conversationHandler.Get)
	conversations.Post("/:conversationId/messages",
		rateLimiter.MessageLimit(10000),
		rateLimiter.GenerationLimit(10000),
		conversationHandler.SendMessage)
	conversations.Post("/:conversationId/cancel", conversationHandler.Cancel)

	generation := api.Group("/generation")
	generation.Get("/status/:taskId", generationHandler.TaskStatus)
	generation.Get("/jobs/:jobId", generationHandler.JobStatus)
	generation.Get("/result/:jobId", generationHandler.Result)

	walletGroup := api.Group("/wallet")
	walletGroup.Get("/", walletHandler.State)
	walletGroup.Post("/connect", walletHandler.Connect)
	walletGroup.Post("/disconnect", walletHandler.Disconnect)

	mint := api.Group("/mint", rateLimiter.MintLimit(10000))
	mint.Post("/", mintHandler.Mint)
	mint.Get("/:mintId", mintHandler.Get)
	mint.Post("/:mintId/reset", mintHandler.Reset)

	return &testApp{app: app, wallet: walletStore}
}

// generateToken creates a guest session token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.GenerateSessionToken("test-session-123", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
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

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
