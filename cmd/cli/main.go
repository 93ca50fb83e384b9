package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hushh-ai/consentvault/internal/admincli"
)

func main() {

	_ = godotenv.Load()

	ctx := context.Background()
	app := admincli.NewApp(os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
