package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	API_BASE_URL     string
	CART_DB_PATH     string
	LOG_LEVEL        string
	KAFKA_ADDRESS    string
	HTTP_ADDR        string
	DATABASE_DSN     string
	SESSION_SECRET   string
	PAYMENT_PAGE_URL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		API_BASE_URL:     getenv("API_BASE_URL", "http://127.0.0.1:5000"),
		CART_DB_PATH:     getenv("CART_DB_PATH", "storefront.db"),
		LOG_LEVEL:        getenv("LOG_LEVEL", "info"),
		KAFKA_ADDRESS:    os.Getenv("KAFKA_ADDRESS"),
		HTTP_ADDR:        getenv("HTTP_ADDR", ":5000"),
		DATABASE_DSN:     os.Getenv("DATABASE_DSN"),
		SESSION_SECRET:   getenv("SESSION_SECRET", "dev-session-secret"),
		PAYMENT_PAGE_URL: getenv("PAYMENT_PAGE_URL", "https://checkout.example.com/pay"),
	}

	return config, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
