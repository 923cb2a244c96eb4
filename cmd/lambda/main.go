package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-steps-nosql/internal/app"
	"github.com/go-steps-nosql/internal/config"
	transportlambda "github.com/go-steps-nosql/internal/transport/lambda"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(app.NewLogger(cfg))

	services, err := app.Build(context.Background(), cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	handlers := transportlambda.NewHandlers(services.Submissions, services.Totals)

	switch cfg.Handler {
	case "submit":
		lambda.Start(handlers.Submit)
	case "total":
		lambda.Start(handlers.Total)
	default:
		slog.Error("unknown HANDLER", "handler", cfg.Handler)
		os.Exit(1)
	}
}
