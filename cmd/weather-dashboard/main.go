package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/config"
	"github.com/i474232898/weather-dashboard/internal/moment"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Sunrise/sunset reference table, loaded once and never mutated.
	table, err := loadTable(cfg.SunriseTablePath)
	if err != nil {
		log.Fatalf("failed to load sunrise/sunset table: %v", err)
	}
	resolver := moment.NewResolver(table, cfg.TimeZone)

	// Shared HTTP client for outbound CWB calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	fetcher := providers.NewCWBProvider(providers.CWBConfig{
		Client:     httpClient,
		APIKey:     cfg.CWBAPIKey,
		BaseURL:    cfg.CWBBaseURL,
		TimeZone:   cfg.TimeZone,
		MaxRetries: cfg.FetchMaxRetries,
		RateLimit:  cfg.FetchRateLimit,
	})

	memStore := store.NewMemoryStore(
		weather.Placeholder(time.Now()),
		cfg.RefreshPolicy,
		cfg.RefreshHistory,
		cfg.RefreshHistoryMaxAge,
	)

	service := weather.NewService(memStore, fetcher, resolver, weather.Options{
		LocationName:   cfg.LocationName,
		CityName:       cfg.CityName,
		MomentLocation: cfg.SunriseLocationName,
	})
	defer service.Close()

	service.Start()

	// Optional automatic refresh.
	sched := scheduler.New(cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-dashboard",
		})
	})

	httpapi.RegisterRoutes(app, service, resolver)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func loadTable(path string) (*moment.Table, error) {
	if path == "" {
		return moment.Default()
	}
	log.Printf("INFO: loading sunrise/sunset table from %s", path)
	return moment.LoadFile(path)
}
