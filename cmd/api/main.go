package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"advanced-todo/configs"
	v1 "advanced-todo/internal/api/v1"
	"advanced-todo/internal/config"
	"advanced-todo/internal/middleware"
	"advanced-todo/internal/store"
	"advanced-todo/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

func main() {
	cfg := configs.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	loggers, err := logger.New(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialise loggers: %v", err)
	}
	defer loggers.Sync()
	loggers.System.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := config.New(ctx, cfg, loggers)
	if err != nil {
		loggers.Error.Error("Failed to build dependencies", zap.Error(err))
		loggers.Sync()
		os.Exit(1)
	}

	go deps.Hub.Run(ctx)
	_ = deps.Scheduler.Authorize()
	if u, ok := deps.Auth.Restore(ctx); ok {
		loggers.System.Info("Previous session restored", zap.String("user_id", u.ID.String()))
	}
	go refreshStatuses(ctx, deps.Tasks, cfg.StatusRefreshInterval)

	app := fiber.New()

	// Middleware
	app.Use(middleware.ErrorHandler(loggers))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	v1.RegisterRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.AppPort)
		loggers.System.Info("Application ready", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			loggers.Error.Error("Application failed to start", zap.Error(err))
			loggers.Sync()
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"app": func(shutdownCtx context.Context) error {
			loggers.System.Info("Graceful shutdown initiated")
			// Stops the hub first so open websockets do not hold the server.
			cancel()
			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				loggers.Error.Error("HTTP server shutdown failed", zap.Error(err))
			}

			// Changes whose flush failed earlier get one more attempt.
			if n := deps.Gateway.Pending(); n > 0 {
				if err := deps.Gateway.Flush(shutdownCtx); err != nil {
					loggers.Error.Error("Final flush failed", zap.Int("pending", n), zap.Error(err))
				}
			}
			return deps.Close()
		},
	})

	exitCode := <-wait
	loggers.System.Info("Application exited", zap.Int("code", exitCode))
	loggers.Sync()
	os.Exit(exitCode)
}

// refreshStatuses keeps derived statuses current as time passes.
func refreshStatuses(ctx context.Context, tasks *store.TaskStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tasks.RefreshStatuses()
		}
	}
}
