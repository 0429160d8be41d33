// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Viewport    ViewportConfig
	Cluster     ClusterConfig
	Ingest      IngestConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// ViewportConfig holds viewport query planning configuration
type ViewportConfig struct {
	QuietPeriod time.Duration
	PageSize    int
	QueryTopic  string
}

// ClusterConfig holds map clustering configuration
type ClusterConfig struct {
	SpiderfyMaxDelta   float64
	SpiderfyMaxSize    int
	MinSpiderRadiusDeg float64
	MaxSpiderRadiusDeg float64
}

// IngestConfig holds place ingestion configuration
type IngestConfig struct {
	EventsTopic   string
	FetchTimeout  time.Duration
	RetentionDays int
	SweepInterval time.Duration

	// CatalogPath optionally replaces the built-in category catalog
	CatalogPath string

	OverpassURL      string
	FoursquareAPIKey string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "mapscout"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Viewport: ViewportConfig{
			QuietPeriod: getEnvAsDuration("VIEWPORT_QUIET_PERIOD", 300*time.Millisecond),
			PageSize:    getEnvAsInt("VIEWPORT_PAGE_SIZE", 100),
			QueryTopic:  getEnv("VIEWPORT_QUERY_TOPIC", "viewport.query"),
		},
		Cluster: ClusterConfig{
			SpiderfyMaxDelta:   getEnvAsFloat("CLUSTER_SPIDERFY_MAX_DELTA", 0.04),
			SpiderfyMaxSize:    getEnvAsInt("CLUSTER_SPIDERFY_MAX_SIZE", 8),
			MinSpiderRadiusDeg: getEnvAsFloat("CLUSTER_MIN_SPIDER_RADIUS", 0.0004),
			MaxSpiderRadiusDeg: getEnvAsFloat("CLUSTER_MAX_SPIDER_RADIUS", 0.004),
		},
		Ingest: IngestConfig{
			EventsTopic:      getEnv("INGEST_EVENTS_TOPIC", "places"),
			FetchTimeout:     getEnvAsDuration("INGEST_FETCH_TIMEOUT", 10*time.Second),
			RetentionDays:    getEnvAsInt("INGEST_RETENTION_DAYS", 14),
			SweepInterval:    getEnvAsDuration("INGEST_SWEEP_INTERVAL", 6*time.Hour),
			CatalogPath:      getEnv("CATEGORY_CATALOG_PATH", ""),
			OverpassURL:      getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			FoursquareAPIKey: getEnv("FOURSQUARE_API_KEY", ""),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Viewport.QuietPeriod <= 0 {
		return fmt.Errorf("viewport quiet period must be positive")
	}

	if config.Cluster.MinSpiderRadiusDeg > config.Cluster.MaxSpiderRadiusDeg {
		return fmt.Errorf("min spider radius must not exceed max spider radius")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
