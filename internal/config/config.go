package config

import (
	"os"
	"strconv"
	"time"

	"alphabot/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Data   DataConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// AIConfig holds LLM planner and narrator settings
type AIConfig struct {
	APIKey              string
	BaseURL             string
	Model               string
	MaxTokens           int
	Temperature         float64
	Timeout             time.Duration
	FallbackToHeuristic bool
}

// DataConfig holds spreadsheet ingestion settings
type DataConfig struct {
	Dir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: loadServerConfig(),
		AI:     loadAIConfig(),
		Data:   loadDataConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:              os.Getenv("OPENAI_API_KEY"),
		BaseURL:             getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:               getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		MaxTokens:           getEnvIntOrDefault("MAX_TOKENS", 1024),
		Temperature:         getEnvFloatOrDefault("TEMPERATURE", 0.0),
		Timeout:             time.Duration(getEnvIntOrDefault("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		FallbackToHeuristic: getEnvBoolOrDefault("LLM_FALLBACK_HEURISTIC", true),
	}
}

func loadDataConfig() DataConfig {
	return DataConfig{
		Dir: getEnvOrDefault("DATA_DIR", "./dados"),
	}
}

// validateConfig checks the few hard requirements. A missing API key
// is allowed: the service then runs on the heuristic planner alone.
func validateConfig(config *Config) error {
	if config.Data.Dir == "" {
		return errors.ConfigInvalid("DATA_DIR is required")
	}
	if config.AI.MaxTokens <= 0 {
		return errors.ConfigInvalid("MAX_TOKENS must be positive")
	}
	if config.AI.APIKey == "" && !config.AI.FallbackToHeuristic {
		return errors.ConfigInvalid("OPENAI_API_KEY is required when the heuristic fallback is disabled")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
