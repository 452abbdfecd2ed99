package main

import (
	"context"
	"os/signal"
	"surveys/cmd/migration/initialize"
	"surveys/internal/app"
	"surveys/internal/handlers"
	"surveys/internal/logger"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return serve(cmd.Context(), a)
		})
	},
}

func serve(ctx context.Context, a *app.App) error {
	log := logger.New("main").Function("serve")

	if err := initialize.Initialize(a.Database.SQL, a.Config, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := handlers.NewServer(a)

	errs := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", a.Config.ListenAddress(), "version", a.Config.GeneralVersion)
		errs <- server.Listen(a.Config.ListenAddress())
	}()

	select {
	case err := <-errs:
		return log.Err("server stopped", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return log.Err("failed to shut down server", err)
	}
	return nil
}
