package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"paperdesk/config"
	"paperdesk/internal/adapters/logger"
	"paperdesk/internal/app"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStderr(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Build the application graph (database, quote source, engine, HTTP)
	svc, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize application")
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Serve until interrupted
	if err := svc.Run(ctx); err != nil {
		appLogger.Error(ctx, err, "Application exited with error")
		svc.Close()
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
