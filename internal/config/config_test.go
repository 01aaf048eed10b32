package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("INGEST_TIMEOUT", "")
	t.Setenv("INGEST_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "promo_sales.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.PingTimeout)
	assert.Equal(t, "products.yaml", cfg.Ingest.ProductsFile)
	assert.Equal(t, 2*time.Minute, cfg.Ingest.Timeout)
	assert.Equal(t, "UTC", cfg.Ingest.Location.String())
	assert.Empty(t, cfg.Metrics.PushgatewayURL)
	assert.Equal(t, "promo_sales_ingest", cfg.Metrics.Job)
	assert.Equal(t, "inbox", cfg.Listener.InboxDir)
	assert.Equal(t, 30*time.Second, cfg.Listener.PollingInterval)
	assert.Equal(t, 5*time.Second, cfg.Listener.SettleTime)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/sales.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("INGEST_TIMEOUT", "45s")
	t.Setenv("INGEST_TIMEZONE", "UTC")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("LISTENER_POLLING_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/sales.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 45*time.Second, cfg.Ingest.Timeout)
	assert.Equal(t, "http://pushgateway:9091", cfg.Metrics.PushgatewayURL)
	assert.Equal(t, time.Minute, cfg.Listener.PollingInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		t.Setenv("INGEST_TIMEOUT", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "INGEST_TIMEOUT")
	})

	t.Run("time zone", func(t *testing.T) {
		t.Setenv("INGEST_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.ErrorContains(t, err, "INGEST_TIMEZONE")
	})

	t.Run("int falls back to default", func(t *testing.T) {
		t.Setenv("INGEST_TIMEZONE", "UTC")
		t.Setenv("DB_MAX_OPEN_CONNS", "many")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	})
}
