package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/voidexchange/walletbot/internal/app"
)

func main() {
	// Optional local overrides; absence is not an error.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	runner := app.NewRunner(logger)
	os.Exit(runner.Run(os.Args[1:]))
}
