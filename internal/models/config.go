package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ingest   IngestConfig
	Metrics  MetricsConfig
	Listener ListenerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// IngestConfig holds sales upload settings
type IngestConfig struct {
	ProductsFile string
	Timeout      time.Duration
	Location     *time.Location
}

// MetricsConfig holds Pushgateway settings; an empty URL disables pushing
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// ListenerConfig holds inbox polling settings
type ListenerConfig struct {
	InboxDir        string
	PollingInterval time.Duration
	SettleTime      time.Duration
	UploaderEmail   string
}
