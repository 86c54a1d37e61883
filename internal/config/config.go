package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Mongo    MongoConfig
	QueryLog QueryLogConfig
	Server   ServerConfig
	Search   SearchConfig
	Logging  LoggingConfig
	LLM      LLMConfig
}

// MongoConfig holds the catalog document store configuration
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
	MaxPool  uint64
}

// QueryLogConfig holds the optional PostgreSQL recommendation log configuration
type QueryLogConfig struct {
	Enabled            bool
	DSN                string // full connection string, takes precedence
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// SearchConfig holds catalog search limits
type SearchConfig struct {
	MaxCandidates    int
	PromptCandidates int
	DefaultPageLimit int
	MaxPageLimit     int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
	Env   string
}

// LLMConfig holds the OpenAI-compatible text generation configuration
type LLMConfig struct {
	APIKey               string
	APIBase              string
	Model                string
	ClassifyTemperature  float64
	RecommendTemperature float64
	MaxTokens            int
	Timeout              int
	Enabled              bool
	PromptsFile          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "YesCity3"),
			Timeout:  time.Duration(getEnvAsInt("MONGODB_TIMEOUT", 10)) * time.Second,
			MaxPool:  uint64(getEnvAsInt("MONGODB_MAX_POOL", 20)),
		},
		QueryLog: QueryLogConfig{
			Enabled:            getEnvAsBool("QUERY_LOG_ENABLED", false),
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "yescity"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Request-ID"),
		},
		Search: SearchConfig{
			MaxCandidates:    getEnvAsInt("SEARCH_MAX_CANDIDATES", 50),
			PromptCandidates: getEnvAsInt("SEARCH_PROMPT_CANDIDATES", 20),
			DefaultPageLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 20),
			MaxPageLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			Env:   getEnv("APP_ENV", "prod"),
		},
		LLM: LLMConfig{
			APIKey:               getEnv("LLM_API_KEY", "ollama"),
			APIBase:              getEnv("LLM_API_BASE", ollamaAPIBase()),
			Model:                getEnv("LLM_MODEL", getEnv("OLLAMA_MODEL", "llama3.2:3b")),
			ClassifyTemperature:  getEnvAsFloat("LLM_CLASSIFY_TEMPERATURE", 0.1),
			RecommendTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			MaxTokens:            getEnvAsInt("LLM_MAX_TOKENS", 1000),
			Timeout:              getEnvAsInt("LLM_TIMEOUT", 60),
			Enabled:              getEnvAsBool("LLM_ENABLED", true),
			PromptsFile:          getEnv("PROMPTS_FILE", ""),
		},
	}

	if cfg.Search.MaxCandidates <= 0 {
		return nil, fmt.Errorf("SEARCH_MAX_CANDIDATES must be positive, got %d", cfg.Search.MaxCandidates)
	}
	if cfg.Search.PromptCandidates <= 0 {
		return nil, fmt.Errorf("SEARCH_PROMPT_CANDIDATES must be positive, got %d", cfg.Search.PromptCandidates)
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string for the query log
func (c *Config) GetPostgreSQLDSN() string {
	if c.QueryLog.DSN != "" {
		return c.QueryLog.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.QueryLog.Host,
		c.QueryLog.Port,
		c.QueryLog.User,
		c.QueryLog.Password,
		c.QueryLog.Database,
		c.QueryLog.SSLMode,
	)
}

// ollamaAPIBase derives the OpenAI-compatible endpoint of a local Ollama server
func ollamaAPIBase() string {
	base := strings.TrimRight(getEnv("OLLAMA_BASE_URL", "http://localhost:11434"), "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
