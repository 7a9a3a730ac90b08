// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/models"
)

// Config holds all application configuration
type Config struct {
	// App
	Env      string `validate:"required,oneof=development production"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// Transport
	Transport   string `validate:"required,oneof=stdio http"`
	Port        string `validate:"required,numeric"`
	MetricsPath string `validate:"omitempty,startswith=/"`

	// Storage
	DBPath string `validate:"required"`

	// Query cache. CacheMaxBytes 0 disables the cache.
	CacheMaxBytes int           `validate:"gte=0"`
	CacheTTL      time.Duration `validate:"gt=0"`

	// Context expansion
	ExpandMaxResults int           `validate:"gt=0"`
	ExpandTimeout    time.Duration `validate:"gt=0"`

	Vocabulary models.Vocabulary
}

// Load reads configuration from environment variables. An optional .env file
// in the working directory is loaded first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("MEMORY_ENV", "development"),
		LogLevel:         getEnv("MEMORY_LOG_LEVEL", ""),
		Transport:        getEnv("MEMORY_TRANSPORT", "stdio"),
		Port:             getEnv("MEMORY_PORT", "8081"),
		MetricsPath:      getEnv("MEMORY_METRICS_PATH", "/metrics"),
		DBPath:           getEnv("MEMORY_DB_PATH", "./data/memory.db"),
		CacheMaxBytes:    getEnvInt("MEMORY_CACHE_MAX_BYTES", 8<<20),
		CacheTTL:         getEnvDuration("MEMORY_CACHE_TTL", 5*time.Minute),
		ExpandMaxResults: getEnvInt("MEMORY_EXPAND_MAX_RESULTS", 1000),
		ExpandTimeout:    getEnvDuration("MEMORY_EXPAND_TIMEOUT", 5*time.Second),
		Vocabulary:       models.DefaultVocabulary(),
	}

	if path := os.Getenv("MEMORY_VOCABULARY_FILE"); path != "" {
		vocab, err := LoadVocabulary(path)
		if err != nil {
			return nil, err
		}
		cfg.Vocabulary = vocab
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadVocabulary reads a YAML vocabulary file. Lists left out of the file
// keep their defaults.
func LoadVocabulary(path string) (models.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Vocabulary{}, fmt.Errorf("read vocabulary file: %w", err)
	}
	vocab := models.DefaultVocabulary()
	var file models.Vocabulary
	if err := yaml.Unmarshal(data, &file); err != nil {
		return models.Vocabulary{}, fmt.Errorf("parse vocabulary file %s: %w", path, err)
	}
	if file.EntityTypes != nil {
		vocab.EntityTypes = file.EntityTypes
	}
	if file.RelationshipTypes != nil {
		vocab.RelationshipTypes = file.RelationshipTypes
	}
	if file.ProviderTypes != nil {
		vocab.ProviderTypes = file.ProviderTypes
	}
	return vocab, nil
}

// Validate checks the struct tags of the configuration and its vocabulary.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
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
