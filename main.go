// package main provides the entry point for the vtrack-backend microservice,
// wiring the historic record store, the treatment policy layer, and the
// REST API together.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntrack/vtrack-backend/database"
	"github.com/vulntrack/vtrack-backend/internal/api"
	"github.com/vulntrack/vtrack-backend/policy"
)

func main() {
	logger := database.InitLogger()

	// Initialize database connection
	db := database.InitializeDatabase()
	store := database.NewArangoStore(db)

	defaults, err := policy.LoadDefaults(database.GetEnvDefault("POLICY_DEFAULTS_FILE", ""))
	if err != nil {
		log.Fatalf("Failed to load default policy: %v", err)
	}

	app := api.NewFiberApp(store, defaults, logger)

	port := database.GetEnvDefault("MS_PORT", "3000")

	// Shut down cleanly on SIGINT/SIGTERM so in-flight writes finish
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Sugar().Errorw("shutdown failed", "error", err)
		}
	}()

	logger.Sugar().Infow("starting server", "port", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
