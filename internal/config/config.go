// Package config loads service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DatabaseDSN     string
	UploadDir       string
	StripeSecretKey string
	Currency        string
	KafkaBroker     string
	KafkaTopic      string
	JWTSecret       string
	DevMode         bool
}

// Load reads .env when present, then the environment. Missing optional
// values fall back to local-development defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getenv("ADDR", ":8080"),
		DatabaseDSN:     getenv("DATABASE_DSN", "file:storefront.db?cache=shared&_pragma=foreign_keys(1)"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		Currency:        getenv("CURRENCY", "usd"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaTopic:      getenv("KAFKA_TOPIC", "storefront.payments"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		DevMode:         os.Getenv("DEV_MODE") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
