package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tally/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := infrastructure.Bootstrap(ctx)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		log.Fatalf("bootstrap: %v", err)
	}

	runErr := app.Run(ctx)
	cleanup()
	if runErr != nil {
		log.Fatalf("run: %v", runErr)
	}
}
