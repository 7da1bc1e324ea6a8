package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/handlers"
	"profitpool/internal/handlers/business"
	"profitpool/internal/middleware"
	"profitpool/internal/repository"
	"profitpool/internal/routes"
	"profitpool/pkg/config"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load settings: ", err)
	}
	config.InitLogger(settings.LogLevel, false)

	// Initialize database
	db, err := config.InitDB(settings.DB)
	if err != nil {
		log.Fatal(err)
	}
	store := repository.New(db)
	entry := log.NewEntry(log.StandardLogger())

	// Recomputes go through the worker when RabbitMQ is configured
	var recompute business.Recomputer
	if settings.RabbitMQ.Enabled() {
		if err := config.InitRabbitMQ(settings.RabbitMQ); err != nil {
			log.Fatal(err)
		}
		defer config.RabbitMQ.Close()

		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Failed to create publisher: ", err)
		}
		defer publisher.Close()
		recompute = business.QueuedRecomputer{Publisher: publisher, Queue: settings.Allocation.RecomputeQueue}
		log.Infof("Recomputes are queued on %s", settings.Allocation.RecomputeQueue)
	} else {
		engine := allocation.NewEngine(store, settings.Allocation.Rates(), entry)
		recompute = business.InlineRecomputer{Engine: engine}
		log.Info("RabbitMQ not configured, recomputes run inline")
	}

	funds := business.NewFundManager(store, recompute, entry)
	if _, err := funds.EnsureOwner(context.Background(), settings.Allocation.OwnerID, settings.Allocation.OwnerName); err != nil {
		log.Fatal("Failed to ensure owner: ", err)
	}

	// Set up router
	r := routes.SetupRouter(handlers.New(funds, store), routes.Options{
		AllowedOrigins: settings.AllowedOrigins,
		Recompute: middleware.RateLimiterConfig{
			RequestsPerSecond: settings.RecomputeRPS,
			Burst:             settings.RecomputeBurst,
		},
	})

	if err := r.Run(":" + settings.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
