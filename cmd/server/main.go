package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"misskey-comments/internal/adapters/web"
	"misskey-comments/internal/app"
	"misskey-comments/internal/config"
	"misskey-comments/pkg/log"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/comments.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.GlobalError("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.Info
	}
	logger := log.NewStdout(level)
	log.SetDefault(logger.With("service", "misskey-comments"))
	defer logger.Close()

	if err := run(cfg); err != nil {
		log.GlobalError("server stopped", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	handlers := web.NewHandlers(application.Stats, application.Thread, application.Renderer, web.Options{
		Title:       cfg.Render.Title,
		HostAllowed: cfg.HostAllowed,
		Content:     application.Content,
	})
	rateLimiter := web.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer rateLimiter.Close()

	fiberApp := fiber.New(fiber.Config{
		AppName:               "Misskey Comments",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          45 * time.Second,
	})

	// Middleware
	fiberApp.Use(recover.New())
	fiberApp.Use(requestid.New(web.RequestIDConfig()))
	fiberApp.Use(web.RequestIDToContextMiddleware())
	fiberApp.Use(web.RequestLoggerMiddleware())

	web.SetupRoutes(fiberApp, handlers, rateLimiter, cfg.Server.StaticDir, application.Metrics.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.GlobalInfo("starting misskey-comments", "port", cfg.Server.Port, "allowed_hosts", cfg.Server.AllowedHosts)
		errCh <- fiberApp.Listen(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.GlobalInfo("shutting down")
	return fiberApp.ShutdownWithTimeout(10 * time.Second)
}
