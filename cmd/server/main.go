package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/mediscan-triage-server/internal/api"
	"github.com/mediscan-triage-server/internal/catalog"
	"github.com/mediscan-triage-server/internal/config"
	"github.com/mediscan-triage-server/internal/logging"
	"github.com/mediscan-triage-server/internal/metrics"
	"github.com/mediscan-triage-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.WithError(err).WithField("path", cfg.Catalog.Path).Fatal("Failed to load keyword catalog")
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	server, err := api.NewServer(configManager, api.Dependencies{
		Logger:    logger,
		Processor: service.NewTriageService(logger, cat),
		Catalog:   cat,
		Metrics:   collector,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"version":     cfg.Server.Version,
		"environment": cfg.Environment,
		"config_file": configManager.ConfigFileUsed(),
		"categories":  cat.Len(),
		"phrases":     cat.PhraseCount(),
	}).Info("Starting MediScan triage server")

	// Stop on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
