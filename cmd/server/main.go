package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/hushh-ai/consentvault/internal/server"
	"github.com/hushh-ai/consentvault/internal/server/config"
)

func main() {

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
