package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"MONGODB_URI", "MONGODB_DATABASE", "LLM_API_BASE", "LLM_MODEL", "OLLAMA_BASE_URL",
		"OLLAMA_MODEL", "SEARCH_MAX_CANDIDATES", "SEARCH_PROMPT_CANDIDATES", "QUERY_LOG_ENABLED",
		"LLM_ENABLED", "LLM_CLASSIFY_TEMPERATURE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "YesCity3", cfg.Mongo.Database)
	assert.Equal(t, 10*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.APIBase)
	assert.Equal(t, "llama3.2:3b", cfg.LLM.Model)
	assert.Equal(t, 0.1, cfg.LLM.ClassifyTemperature)
	assert.True(t, cfg.LLM.Enabled)
	assert.Equal(t, 50, cfg.Search.MaxCandidates)
	assert.Equal(t, 20, cfg.Search.PromptCandidates)
	assert.False(t, cfg.QueryLog.Enabled)
}

func TestLoad_OllamaFallbacks(t *testing.T) {
	t.Setenv("LLM_API_BASE", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434/")
	t.Setenv("OLLAMA_MODEL", "mistral")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://ollama:11434/v1", cfg.LLM.APIBase)
	assert.Equal(t, "mistral", cfg.LLM.Model)
}

func TestLoad_ExplicitLLMSettingsWin(t *testing.T) {
	t.Setenv("LLM_API_BASE", "https://api.example.com/v1")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("LLM_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", cfg.LLM.APIBase)
	assert.False(t, cfg.LLM.Enabled)
}

func TestLoad_InvalidNumbersUseDefaults(t *testing.T) {
	t.Setenv("SEARCH_MAX_CANDIDATES", "lots")
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("QUERY_LOG_ENABLED", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Search.MaxCandidates)
	assert.Equal(t, 0.1, cfg.LLM.RecommendTemperature)
	assert.False(t, cfg.QueryLog.Enabled)
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("SEARCH_MAX_CANDIDATES", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{QueryLog: QueryLogConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "logs", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=logs sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.QueryLog.DSN = "postgres://u:p@db/logs"
	assert.Equal(t, "postgres://u:p@db/logs", cfg.GetPostgreSQLDSN())
}
