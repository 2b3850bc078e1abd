// Package config provides configuration management for HexMem.
// It loads settings from environment variables with the HEXMEM_ prefix
// and sensible defaults, following the same getEnv/getEnvInt/getEnvDuration
// convention used throughout this codebase.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the HexMem server.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Embed    EmbedConfig
	Extract  ExtractConfig
	Security SecurityConfig
	Decay    DecayConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 8080)
	Host string // Server host (default: 0.0.0.0)
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	Engine        string // "postgres" or "sqlite" (default: postgres)
	DSN           string // connection string / sqlite path
	MigrationsDir string // directory of .sql migration files
	MaxOpenConns  int
	MaxIdleTime   time.Duration
	ConnTimeout   time.Duration
}

// EmbedConfig contains embedding provider configuration.
type EmbedConfig struct {
	Provider   string // "ollama", "openai", "stub" (default: stub)
	OllamaURL  string
	Model      string
	OpenAIKey  string
	Dimensions int
}

// ExtractConfig contains LLM extractor configuration.
type ExtractConfig struct {
	Provider  string // "ollama", "openai", "stub" (default: stub)
	OllamaURL string
	Model     string
	OpenAIKey string
}

// SecurityConfig contains auth settings.
type SecurityConfig struct {
	// DevKey, when non-empty, is a static bearer token granted
	// {read,write,admin} with no agent scope.
	DevKey string
}

// DecayConfig contains background ticker intervals.
type DecayConfig struct {
	SweepInterval       time.Duration // default 1h
	AnalyticsPrune      time.Duration // default 6h
	AnalyticsRetention  time.Duration // default 30 * 24h
	CoolingToArchiveAge time.Duration // default 30 * 24h
}

// Load builds a Config from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("HEXMEM_PORT", 8080),
			Host: getEnv("HEXMEM_HOST", "0.0.0.0"),
		},
		Storage: StorageConfig{
			Engine:        getEnv("HEXMEM_STORAGE_ENGINE", "postgres"),
			DSN:           getEnv("HEXMEM_DSN", "postgres://localhost:5432/hexmem?sslmode=disable"),
			MigrationsDir: getEnv("HEXMEM_MIGRATIONS_DIR", "migrations"),
			MaxOpenConns:  getEnvInt("HEXMEM_DB_MAX_OPEN_CONNS", 20),
			MaxIdleTime:   getEnvDuration("HEXMEM_DB_IDLE_TIMEOUT", 30*time.Second),
			ConnTimeout:   getEnvDuration("HEXMEM_DB_CONNECT_TIMEOUT", 5*time.Second),
		},
		Embed: EmbedConfig{
			Provider:   getEnv("HEXMEM_EMBED_PROVIDER", "stub"),
			OllamaURL:  getEnv("HEXMEM_OLLAMA_URL", "http://localhost:11434"),
			Model:      getEnv("HEXMEM_EMBED_MODEL", "nomic-embed-text"),
			OpenAIKey:  getEnv("HEXMEM_OPENAI_API_KEY", ""),
			Dimensions: getEnvInt("HEXMEM_EMBED_DIMENSIONS", 768),
		},
		Extract: ExtractConfig{
			Provider:  getEnv("HEXMEM_EXTRACT_PROVIDER", "stub"),
			OllamaURL: getEnv("HEXMEM_OLLAMA_URL", "http://localhost:11434"),
			Model:     getEnv("HEXMEM_EXTRACT_MODEL", "qwen2.5:7b"),
			OpenAIKey: getEnv("HEXMEM_OPENAI_API_KEY", ""),
		},
		Security: SecurityConfig{
			DevKey: getEnv("HEXMEM_DEV_KEY", ""),
		},
		Decay: DecayConfig{
			SweepInterval:       getEnvDuration("HEXMEM_DECAY_SWEEP_INTERVAL", time.Hour),
			AnalyticsPrune:      getEnvDuration("HEXMEM_ANALYTICS_PRUNE_INTERVAL", 6*time.Hour),
			AnalyticsRetention:  getEnvDuration("HEXMEM_ANALYTICS_RETENTION", 30*24*time.Hour),
			CoolingToArchiveAge: getEnvDuration("HEXMEM_COOLING_TO_ARCHIVE_AGE", 30*24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
