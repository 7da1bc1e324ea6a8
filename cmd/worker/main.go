package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	logrus "github.com/sirupsen/logrus"

	"profitpool/internal/allocation"
	"profitpool/internal/handlers/business"
	"profitpool/internal/repository"
	"profitpool/pkg/config"
)

func main() {
	purge := flag.Bool("purge", false, "drop queued recompute requests before consuming")
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load settings: ", err)
	}
	config.InitLogger(settings.LogLevel, true)

	// Initialize database
	db, err := config.InitDB(settings.DB)
	if err != nil {
		logrus.Fatal(err)
	}

	// Initialize RabbitMQ
	if err := config.InitRabbitMQ(settings.RabbitMQ); err != nil {
		logrus.Fatal(err)
	}
	defer config.RabbitMQ.Close()

	queue := settings.Allocation.RecomputeQueue
	if *purge {
		if err := config.PurgeQueue(queue); err != nil {
			logrus.Warnf("Failed to purge %s: %v", queue, err)
		}
	}

	store := repository.New(db)
	entry := logrus.WithField("queue", queue)
	engine := allocation.NewEngine(store, settings.Allocation.Rates(), entry)
	funds := business.NewFundManager(store, business.InlineRecomputer{Engine: engine}, entry)

	msgConsumer, err := config.NewConsumer(queue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("Allocation recompute worker started, waiting for messages...")

	err = msgConsumer.Consume(ctx, business.RecomputeHandler(engine, funds.RefreshBalances, entry))
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Error("Consumer stopped: ", err)
	}
}
