package config

import (
	"log"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Invoice feed sources.
const (
	InvoiceFeedDatabase = "database"
	InvoiceFeedSheets   = "sheets"
)

// Config holds application configuration
type Config struct {
	// Server
	Env                string
	LogLevel           string
	Port               string
	RateLimit          string
	CORSAllowedOrigins []string
	PipelineAPIKey     string

	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Invoice feed
	InvoiceFeed              string
	GoogleSpreadsheetID      string
	GoogleInvoicesRange      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	DefaultCurrency string
}

var (
	appConfig *Config
	mu        sync.Mutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("PIPELINE_API_KEY", "")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "cashplan")
	v.SetDefault("DB_PASSWORD", "cashplan")
	v.SetDefault("DB_NAME", "cashplan")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "cashplan.db")

	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "cashplan.events")
	v.SetDefault("AMQP_QUEUE", "")

	v.SetDefault("INVOICE_FEED", InvoiceFeedDatabase)
	v.SetDefault("GOOGLE_SPREADSHEET_ID", "")
	v.SetDefault("GOOGLE_INVOICES_RANGE", "Invoices!A2:H")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")

	v.SetDefault("DEFAULT_CURRENCY", "USD")
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists. Real environment variables win over .env values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	config := &Config{
		Env:                v.GetString("ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		Port:               v.GetString("PORT"),
		RateLimit:          v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		PipelineAPIKey:     v.GetString("PIPELINE_API_KEY"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		InvoiceFeed:              strings.ToLower(v.GetString("INVOICE_FEED")),
		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleInvoicesRange:      v.GetString("GOOGLE_INVOICES_RANGE"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		DefaultCurrency: strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
	}

	if config.PipelineAPIKey == "" {
		log.Println("Warning: PIPELINE_API_KEY not set, pipeline endpoints will reject every request")
	}
	if config.InvoiceFeed != InvoiceFeedDatabase && config.InvoiceFeed != InvoiceFeedSheets {
		log.Printf("Warning: unknown INVOICE_FEED '%s', falling back to %s\n", config.InvoiceFeed, InvoiceFeedDatabase)
		config.InvoiceFeed = InvoiceFeedDatabase
	}

	mu.Lock()
	appConfig = config
	mu.Unlock()
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	mu.Lock()
	cfg := appConfig
	mu.Unlock()
	if cfg != nil {
		return cfg
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// splitList turns a comma separated value into a trimmed, non-empty slice.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
