// Package config loads application configuration from the environment,
// an optional .env file, and an optional bookscout.yaml overrides file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrNoAPIKey indicates the configured provider has no credential. Callers
// treat this as fatal at startup, before any interactive loop begins.
var ErrNoAPIKey = errors.New("API key required")

// Provider identifies the LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// LLM backend
	LLMProvider Provider
	LLMModel    string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Tracing (LangSmith-compatible). Empty API key disables tracing.
	TraceEndpoint string
	TraceAPIKey   string
	TraceProject  string

	// Environment name attached to trace tags.
	Environment string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Directory where recommendation JSON dumps are written.
	OutputDir string
}

// fileOverrides mirrors the optional bookscout.yaml file. Values set here
// act as defaults; environment variables always win.
type fileOverrides struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaHost  string `yaml:"ollama_host"`
	Environment string `yaml:"environment"`
	LogFile     string `yaml:"log_file"`
	LogLevel    string `yaml:"log_level"`
	OutputDir   string `yaml:"output_dir"`
}

// OverridesFile is the optional per-directory configuration file.
const OverridesFile = "bookscout.yaml"

// Load reads configuration with precedence: environment > bookscout.yaml > defaults.
// A local .env file, when present, is loaded into the environment first.
func Load() Config {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	overrides := loadOverrides(OverridesFile)

	return Config{
		LLMProvider: Provider(getEnv("BOOKSCOUT_PROVIDER", pick(overrides.Provider, string(ProviderOpenAI)))),
		LLMModel:    getEnv("BOOKSCOUT_MODEL", pick(overrides.Model, "gpt-4-turbo-preview")),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", pick(overrides.OllamaHost, "http://localhost:11434")),

		TraceEndpoint: getEnv("LANGSMITH_ENDPOINT", "https://api.smith.langchain.com"),
		TraceAPIKey:   os.Getenv("LANGSMITH_API_KEY"),
		TraceProject:  getEnv("LANGSMITH_PROJECT", "book_recommendations"),

		Environment: getEnv("BOOKSCOUT_ENV", pick(overrides.Environment, "development")),

		LogFile:  getEnv("BOOKSCOUT_LOG_FILE", pick(overrides.LogFile, "app.log")),
		LogLevel: parseLogLevel(getEnv("BOOKSCOUT_LOG_LEVEL", pick(overrides.LogLevel, "DEBUG"))),

		OutputDir: getEnv("BOOKSCOUT_OUTPUT_DIR", pick(overrides.OutputDir, ".")),
	}
}

// APIKey returns the credential for the configured provider. Ollama runs
// locally and needs none.
func (c Config) APIKey() (string, error) {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return "", fmt.Errorf("OPENAI_API_KEY not set: %w", ErrNoAPIKey)
		}
		return c.OpenAIAPIKey, nil
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return "", fmt.Errorf("ANTHROPIC_API_KEY not set: %w", ErrNoAPIKey)
		}
		return c.AnthropicAPIKey, nil
	case ProviderOllama:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}
}

func loadOverrides(path string) fileOverrides {
	var o fileOverrides
	data, err := os.ReadFile(path)
	if err != nil {
		return o
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: ignoring malformed %s: %v\n", path, err)
		return fileOverrides{}
	}
	return o
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func pick(override, defaultVal string) string {
	if override != "" {
		return override
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
