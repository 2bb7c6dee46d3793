package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		for _, key := range []string{"PORT", "DB_DRIVER", "RATE_LIMIT", "INVOICE_FEED", "DEFAULT_CURRENCY"} {
			t.Setenv(key, "")
		}

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "300-M", cfg.RateLimit)
		assert.Equal(t, InvoiceFeedDatabase, cfg.InvoiceFeed)
		assert.Equal(t, "USD", cfg.DefaultCurrency)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("DB_DRIVER", "SQLite")
		t.Setenv("DEFAULT_CURRENCY", "eur")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
		t.Setenv("ENV", "production")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "sqlite", cfg.DBDriver)
		assert.Equal(t, "EUR", cfg.DefaultCurrency)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("unknown invoice feed falls back to database", func(t *testing.T) {
		t.Setenv("INVOICE_FEED", "ftp")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, InvoiceFeedDatabase, cfg.InvoiceFeed)
	})

	t.Run("get returns the loaded config", func(t *testing.T) {
		t.Setenv("PORT", "7070")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Same(t, cfg, Get())
	})
}
