// migrate applies or rolls back the embedded schema: go run ./cmd/migrate -direction up
package main

import (
	"flag"
	"fmt"
	"os"

	"b2b-tenancy/internal/config"
	"b2b-tenancy/internal/db/migrate"
	"b2b-tenancy/internal/platform/logging"

	"go.uber.org/zap"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		logger.Fatal("invalid direction", zap.Error(err))
	}
	if err := migrate.Run(cfg.DatabaseURL, dir, logger); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}
}
