package main

import (
	"log/slog"
	"os"

	"retailcast/internal/app"
	"retailcast/internal/infrastructure"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		// falls back to slog.Default when the logger was never initialized
		infrastructure.GetLogger().Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
