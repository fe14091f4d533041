package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aq2208/storefront-api/cmd/storefront-api/app"
	"github.com/aq2208/storefront-api/configs"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.InitWithConfig(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if err := a.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
