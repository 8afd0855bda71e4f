package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	PGURL            string
	Port             string
	LogLevel         string
	UseInMemoryStore bool
}

// Load reads configuration from environment variables. A .env file is loaded
// if present to simplify local development. An empty PG_URL selects the
// in-memory store instead of Postgres.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		PGURL:    os.Getenv("PG_URL"),
		Port:     getString("PORT", "8080"),
		LogLevel: getString("LOG_LEVEL", "info"),
	}
	cfg.UseInMemoryStore = cfg.PGURL == ""
	return cfg
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
