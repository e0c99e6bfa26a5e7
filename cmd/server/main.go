package main

import (
	"context"
	"log"
	"os"

	"lifeworld/server/internal/app"
	"lifeworld/server/internal/telemetry"
)

func main() {
	logger := telemetry.WrapLogger(log.Default())
	cfg := app.LoadConfig(os.Getenv, logger)
	cfg.Logger = logger
	if err := app.Run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
