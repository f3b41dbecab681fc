// Package server wires the safety services, the Gemini collaborator, and
// the HTTP surface into one runnable assistant.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/api"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/config"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/alerts"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/assistant"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/chat"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ledger"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/ratelimit"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/security"
	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/services/store"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server represents a lab assistant server instance.
type Server struct {
	config *config.Config
	app    *fiber.App
}

type services struct {
	ledger       *ledger.Ledger
	limiter      *ratelimit.Limiter
	validator    *security.Validator
	alerts       *alerts.Dispatcher
	assistant    *assistant.Client
	store        *store.Service
	orchestrator *chat.Orchestrator
}

// New creates a new Server instance with the given configuration.
// The cfg parameter is required and must not be nil.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() to create config")
	}
	return &Server{config: cfg}
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	s.app = createFiberApp(s.config)

	svcs, err := initializeServices(s.config)
	if err != nil {
		return err
	}
	defer func() {
		if err := svcs.ledger.Close(); err != nil {
			fiberlog.Errorf("Failed to close usage ledger: %v", err)
		}
		if err := svcs.limiter.Close(); err != nil {
			fiberlog.Errorf("Failed to close rate limiter: %v", err)
		}
		if err := svcs.validator.Close(); err != nil {
			fiberlog.Errorf("Failed to close validator: %v", err)
		}
	}()

	setupMiddleware(s.app, s.config)
	setupRoutes(s.app, s.config, svcs)

	fmt.Printf("Lab assistant starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Model: %s\n", s.config.Assistant.Model)
	fmt.Printf("   Go version: %s\n", runtime.Version())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		fiberlog.Info("Context cancelled, starting shutdown...")
	}

	fiberlog.Info("Server shutting down gracefully...")
	if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	fiberlog.Info("Server shutdown completed successfully")

	return nil
}

func initializeServices(cfg *config.Config) (*services, error) {
	usageLedger, err := ledger.New(cfg.Logging.Dir, cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize usage ledger: %w", err)
	}

	rateLimiter, err := ratelimit.New(cfg.Limits, cfg.Logging.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	validator, err := security.New(cfg.Limits, cfg.Logging.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize input validator: %w", err)
	}

	dispatcher := alerts.New(cfg.Alerts)
	if dispatcher.Enabled() {
		fiberlog.Info("Alert dispatcher enabled")
	} else {
		fiberlog.Info("Alert dispatcher disabled - no topic configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	assistantClient, err := assistant.NewClient(ctx, cfg.Assistant)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	storeSvc := store.New(assistantClient.Genai(), cfg.Assistant)

	// Sync the knowledge base at startup so answers are grounded from the
	// first request. A sync failure degrades to ungrounded answers instead
	// of refusing to start.
	if fileStore, err := storeSvc.EnsureStore(ctx); err != nil {
		fiberlog.Errorf("Knowledge base unavailable, answers will not be grounded: %v", err)
	} else {
		assistantClient.UseStore(fileStore.Name)
		if result, err := storeSvc.EnsureSynced(ctx); err != nil {
			fiberlog.Errorf("Knowledge base sync failed: %v", err)
		} else {
			fiberlog.Infof("Knowledge base synced: %d uploaded, %d already indexed, %d failed",
				len(result.Uploaded), len(result.Skipped), len(result.Failed))
		}
	}

	orchestrator := chat.New(usageLedger, rateLimiter, validator, dispatcher, assistantClient, cfg.Limits)

	return &services{
		ledger:       usageLedger,
		limiter:      rateLimiter,
		validator:    validator,
		alerts:       dispatcher,
		assistant:    assistantClient,
		store:        storeSvc,
		orchestrator: orchestrator,
	}, nil
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "Lab Outreach Assistant v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		CaseSensitive:     true,
		ServerHeader:      "LabAssistant",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	// Recover middleware (must be first)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	// Coarse IP throttle in front of the per-session limiter; it only
	// exists to blunt scripted floods before any session accounting runs.
	app.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	// Request timeout middleware
	app.Use(func(c *fiber.Ctx) error {
		timeout := time.Duration(cfg.Server.RequestTimeoutMs) * time.Millisecond

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		return c.Next()
	})

	// Logging
	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
		MaxAge:       86400,
	}))
}

func setupRoutes(app *fiber.App, cfg *config.Config, svcs *services) {
	healthHandler := api.NewHealthHandler(cfg, svcs.ledger)
	chatHandler := api.NewChatHandler(svcs.orchestrator)
	statsHandler := api.NewStatsHandler(svcs.ledger)
	storeHandler := api.NewStoreHandler(svcs.store)

	app.Get("/health", healthHandler.HealthCheck)

	v1 := app.Group("/v1")
	v1.Post("/chat", chatHandler.Chat)

	statsHandler.RegisterRoutes(app, "/admin/stats")
	storeHandler.RegisterRoutes(app, "/admin/store")

	app.Get("/", welcomeHandler())
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		if logLevel != "" {
			fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
		}
	}
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Hickey Lab outreach assistant",
			"status":  "running",
			"endpoints": fiber.Map{
				"chat":   "/v1/chat",
				"health": "/health",
				"stats":  "/admin/stats/daily",
			},
		})
	}
}
