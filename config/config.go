// Package config loads process settings from the environment
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/zijiren233/openapi-plugin-resolver/llm"
)

// Config holds the process settings
type Config struct {
	Env         string
	LLM         LLMConfig
	PromptsDir  string // Optional: overrides the embedded prompt templates
	HTTPTimeout time.Duration
}

// LLMConfig selects and tunes the chat-completion provider
type LLMConfig struct {
	Provider    string // "openai" or "anthropic"
	APIKey      string
	BaseURL     string // Optional: for custom endpoints
	Model       string // Optional: empty selects the provider's default
	Temperature float64
	MaxTokens   int
}

// Load loads configuration from environment variables.
// In development, values from .env fill in anything the environment lacks.
func Load() Config {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	return Config{
		Env: getEnv("APP_ENV", "development"),
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", llm.ProviderOpenAI),
			APIKey:      getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Model:       getEnv("LLM_MODEL", ""),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
		},
		PromptsDir:  getEnv("PROMPTS_DIR", ""),
		HTTPTimeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// IsProduction reports whether APP_ENV is production
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether APP_ENV is development
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Enabled reports whether a key and a supported provider are configured
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == llm.ProviderOpenAI || c.Provider == llm.ProviderAnthropic)
}

// Client returns the llm.Config for the configured provider
func (c LLMConfig) Client() llm.Config {
	return llm.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
