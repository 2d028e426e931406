package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting

	BotName string
	LLM     LLMConfig
}

// LLMConfig configures the model gateway and the bot reply parameters.
type LLMConfig struct {
	DefaultProvider string
	Timeout         time.Duration
	Temperature     float64
	MaxTokens       int
	Providers       []ProviderConfig
}

// ProviderConfig describes one model back-end.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"` // openai, gemini, ollama or anthropic
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/gro.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      getDuration("JWT_TTL", 24*time.Hour),
		BotName:     getEnv("BOT_NAME", "LLM Bot"),
		LLM: LLMConfig{
			DefaultProvider: getEnv("LLM_MODEL", "tinyllama"),
			Timeout:         getDuration("LLM_TIMEOUT", 120*time.Second),
			Temperature:     getFloat("LLM_TEMPERATURE", 0.2),
			MaxTokens:       getInt("LLM_MAX_TOKENS", 512),
			Providers:       envProviders(),
		},
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if path := os.Getenv("LLM_PROVIDERS_FILE"); path != "" {
		fromFile, err := LoadProvidersFile(path)
		if err != nil {
			panic(err)
		}
		cfg.LLM.Providers = MergeProviders(cfg.LLM.Providers, fromFile)
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
	} else if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// envProviders returns the providers derived from environment variables.
// The local TinyLlama model is always present; hosted providers are added
// only when their API key is set.
func envProviders() []ProviderConfig {
	providers := []ProviderConfig{{
		Name:    "tinyllama",
		Kind:    "ollama",
		BaseURL: getEnv("OLLAMA_HOST", "http://localhost:11434"),
		Model:   getEnv("OLLAMA_MODEL", "tinyllama"),
	}}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		providers = append(providers, ProviderConfig{
			Name:    "openai",
			Kind:    "openai",
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:  key,
		})
	}
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		providers = append(providers, ProviderConfig{
			Name:   "gemini",
			Kind:   "gemini",
			Model:  getEnv("GEMINI_MODEL", "gemini-pro"),
			APIKey: key,
		})
	}
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		providers = append(providers, ProviderConfig{
			Name:   "anthropic",
			Kind:   "anthropic",
			Model:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			APIKey: key,
		})
	}
	return providers
}

type providersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadProvidersFile reads provider entries from a YAML file. API keys
// written as "$NAME" or "${NAME}" are expanded from the environment.
func LoadProvidersFile(path string) ([]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	var f providersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse providers file %s: %w", path, err)
	}
	for i := range f.Providers {
		if strings.HasPrefix(f.Providers[i].APIKey, "$") {
			f.Providers[i].APIKey = os.ExpandEnv(f.Providers[i].APIKey)
		}
	}
	return f.Providers, nil
}

// MergeProviders returns base with every entry of override applied by name.
// Entries unknown to base are appended in override order.
func MergeProviders(base, override []ProviderConfig) []ProviderConfig {
	out := make([]ProviderConfig, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.Name] = i
	}
	for _, p := range override {
		if i, ok := index[p.Name]; ok {
			out[i] = p
			continue
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
