package config

import (
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port       string
	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBDatabase string
	JWTSecret  string
	CORSOrigin string

	// Restock sweeper tuning.
	RestockInterval time.Duration
	PendingOrderTTL time.Duration
}

func Load() Config {
	return Config{
		Port:            getenv("PORT", "8080"),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "5432"),
		DBUsername:      getenv("DB_USERNAME", "postgres"),
		DBPassword:      getenv("DB_PASSWORD", "postgres"),
		DBDatabase:      getenv("DB_DATABASE", "shop"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		CORSOrigin:      getenv("CORS_ORIGIN", "http://localhost:3030"),
		RestockInterval: getduration("RESTOCK_INTERVAL", time.Minute),
		PendingOrderTTL: getduration("PENDING_ORDER_TTL", 24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
