package main

import (
	"context"
	"fmt"
	"strings"

	"cashplan/internal/config"
	"cashplan/internal/database"
	"cashplan/internal/events"
	"cashplan/internal/invoices"
	"cashplan/internal/logger"
	"cashplan/internal/server"
	"cashplan/internal/services"
	"cashplan/internal/validator"

	"gorm.io/gorm"
)

// @title           Cashplan API
// @version         1.0
// @description     Cashplan plans future cash movements, recurring items and budgets, and reports on projected cash flow.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appConfig.Env, appConfig.LogLevel)
	defer logger.Sync()
	log := logger.Get()

	if appConfig.DefaultCurrency != "" {
		if !validator.IsCurrency(appConfig.DefaultCurrency) {
			return fmt.Errorf("invalid DEFAULT_CURRENCY %q", appConfig.DefaultCurrency)
		}
		services.DefaultCurrency = appConfig.DefaultCurrency
	}
	validator.Register()

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	ctx := context.Background()

	feed, err := newInvoiceFeed(ctx, appConfig, db)
	if err != nil {
		return fmt.Errorf("failed to create invoice feed: %w", err)
	}

	publisher := newPublisher(appConfig)
	defer func() { _ = publisher.Close() }()

	router, err := server.NewRouter(server.Options{
		CORSAllowedOrigins: appConfig.CORSAllowedOrigins,
		RateLimit:          appConfig.RateLimit,
		PipelineAPIKey:     appConfig.PipelineAPIKey,
	}, server.NewServices(db, feed, publisher))
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	log.Infof("Starting cashplan server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

func newInvoiceFeed(ctx context.Context, cfg *config.Config, db *gorm.DB) (invoices.Feed, error) {
	if cfg.InvoiceFeed != config.InvoiceFeedSheets {
		return invoices.NewGormFeed(db), nil
	}
	logger.Get().Infow("reading invoices from google sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return invoices.NewSheetsFeed(ctx, invoices.SheetsConfig{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		Range:              cfg.GoogleInvoicesRange,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
}

// newPublisher connects to the broker when AMQP_URL is set. A broker that
// cannot be reached degrades to dropping events.
func newPublisher(cfg *config.Config) events.Publisher {
	if strings.TrimSpace(cfg.AMQPURL) == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Get().Warnw("event publishing disabled", "error", err)
		return events.NopPublisher{}
	}
	return publisher
}
