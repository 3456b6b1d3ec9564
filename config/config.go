package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mollie   MollieConfig
	Service  ServiceConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// MollieConfig is injected into the Mollie client at construction;
// nothing reads API credentials from ambient state after startup.
type MollieConfig struct {
	APIKey  string
	BaseURL string
}

type ServiceConfig struct {
	APIKey            string // shared secret expected in X-API-KEY
	FrontendReturnURL string // default redirect after checkout
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         envOr("APP_HOST", "0.0.0.0"),
			Port:         envOr("APP_PORT", "8000"),
			Env:          envOr("ENV", "development"),
			ReadTimeout: 10 * time.Second,
			// Must outlast the 30s Mollie create call.
			WriteTimeout: 35 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             os.Getenv("DATABASE_DSN"),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: time.Hour,
		},
		Mollie: MollieConfig{
			APIKey:  os.Getenv("MOLLIE_API_KEY"),
			BaseURL: envOr("MOLLIE_API_BASE", "https://api.mollie.com/v2"),
		},
		Service: ServiceConfig{
			APIKey:            os.Getenv("SERVICE_API_KEY"),
			FrontendReturnURL: envOr("FRONTEND_RETURN_URL", "https://your-frontend.com/pay-return"),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
