// Package config provides configuration management for MarketLens.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// OpenRouter settings
	OpenRouterAPIKey   string
	OpenRouterEndpoint string
	OpenRouterModel    string

	// Dispatcher settings
	BatchSize  int
	BatchDelay time.Duration
	OutputDir  string

	// MongoDB settings
	MongoURI string
	MongoDB  string

	// Server settings
	HTTPAddr string
	Debug    bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		// OpenRouter
		OpenRouterAPIKey:   getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterEndpoint: getEnv("OPENROUTER_ENDPOINT", "https://openrouter.ai/api/v1"),
		OpenRouterModel:    getEnv("OPENROUTER_MODEL", "deepseek/deepseek-r1"),

		// Dispatcher
		BatchSize:  getEnvInt("BATCH_SIZE", 100),
		BatchDelay: getEnvDuration("BATCH_DELAY", 500*time.Millisecond),
		OutputDir:  getEnv("OUTPUT_DIR", "."),

		// MongoDB
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "marketlens"),

		// Server
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate checks if required configuration is present. Missing
// credentials are a startup failure, before any batch runs.
func (c *Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY not found in environment variables")
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
