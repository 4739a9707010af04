package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dnldd/impulse/service"
	"github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt, syscall.SIGTERM}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)
	defer signal.Stop(interrupt)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Error().Msgf("loading config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleTermination(ctx, cancel)

	svc, err := service.NewService(ctx, &service.ServiceConfig{
		Markets:              cfg.Markets,
		Source:               cfg.Source,
		FMPAPIKey:            cfg.FMPAPIKey,
		PolygonAPIKey:        cfg.PolygonAPIKey,
		HistoricDataFilePath: cfg.HistoricDataFilePath,
		CachePath:            cfg.CachePath,
		ParamsFilePath:       cfg.ParamsFilePath,
		DBEndpoint:           cfg.DBEndpoint,
		DBUser:               cfg.DBUser,
		DBPass:               cfg.DBPass,
		HTTPAddr:             cfg.HTTPAddr,
		Schedule:             cfg.Schedule,
		Tracing:              cfg.Tracing,
		Cancel:               cancel,
	})
	if err != nil {
		log.Error().Msgf("creating impulse service: %v", err)
		return
	}

	svc.Run(ctx)
}
