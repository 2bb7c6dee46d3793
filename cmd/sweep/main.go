// Command sweep runs one recurrence sweep and exits. It is meant to be
// scheduled (cron, Kubernetes CronJob) when the API's pipeline endpoint is
// not used.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"cashplan/internal/config"
	"cashplan/internal/database"
	"cashplan/internal/events"
	"cashplan/internal/logger"
	"cashplan/internal/services"
)

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Sweep error: %v", err)
	}
}

func run() error {
	at := flag.String("at", "", "reference date (YYYY-MM-DD); defaults to now")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	ref := time.Now().UTC()
	if *at != "" {
		if ref, err = time.Parse("2006-01-02", *at); err != nil {
			return fmt.Errorf("invalid -at date: %w", err)
		}
	}
	if cfg.DefaultCurrency != "" {
		services.DefaultCurrency = cfg.DefaultCurrency
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("failed to connect to broker: %w", err)
		}
		publisher = p
	}
	defer func() { _ = publisher.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := services.NewRecurringService(dbManager.DB(), publisher).Sweep(ctx, ref)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d recurring item(s) failed to generate", result.Failed)
	}
	return nil
}
