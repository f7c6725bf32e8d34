package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment. It is built
// once in main and handed to the controller and services, so nothing in the
// pipeline touches os.Getenv mid-request.
type Config struct {
	Port             string
	AnthropicAPIKey  string
	AnthropicBaseURL string
	AnthropicModel   string
	ArchiveBaseURL   string
	CachePath        string
}

// Load reads the configuration from a .env file (optional) and the process
// environment. A missing ANTHROPIC_API_KEY is deliberately not fatal here:
// the chat endpoint reports it as a 500 at request time instead.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("CONFIG: No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		ArchiveBaseURL:   getEnv("ARCHIVE_BASE_URL", "https://archive.storycorps.org/wp-json/storycorps/v1/interviews"),
		CachePath:        getEnv("CACHE_PATH", "mosaic_cache.db"),
	}

	if cfg.AnthropicAPIKey == "" {
		log.Println("CONFIG: ANTHROPIC_API_KEY is not set; /api/v1/chat will return 500 until it is configured.")
	}
	return cfg
}

// getEnv returns the value of the environment variable or the default when it
// is unset or empty.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
