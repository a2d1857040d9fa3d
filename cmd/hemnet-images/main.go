package main

import (
	"context"
	"log/slog"
	"os"

	"hemnet-images/internal"
)

func main() {
	application, err := internal.NewApp(context.Background())
	if err != nil {
		slog.Error("Failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
