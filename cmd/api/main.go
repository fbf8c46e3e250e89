package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammadpnp/member-import/internal/bootstrap"
	"github.com/mohammadpnp/member-import/internal/config"
	"github.com/mohammadpnp/member-import/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	app, err := bootstrap.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer app.Close()

	server := bootstrap.NewHTTPServer(app)

	// IMPORT_INLINE_WORKER=true runs chunk jobs in the API process for single-node setups.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	var consumer interface{ Wait() }
	if os.Getenv("IMPORT_INLINE_WORKER") == "true" {
		c := app.NewConsumer()
		c.Start(workerCtx)
		consumer = c
	}

	go func() {
		if err := server.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if consumer != nil {
		consumer.Wait()
	}
}
