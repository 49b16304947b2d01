// Package config loads chatmod settings from built-in defaults, an optional
// YAML file, the environment and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/run-bigpig/chatmod/pkg/guardrails"
)

// Provider names
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultSystemPrompt instructs the model to stay harmless
const DefaultSystemPrompt = "You are a helpful and friendly AI assistant. You provide harmless and accurate information. If asked about a dangerous, harmful, or illegal activity, you refuse to provide any information and explain why."

// ErrMissingAPIKey is returned when the provider credential is not set
var ErrMissingAPIKey = errors.New("API key not found in environment variables")

// Config holds all settings of the chat client
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Moderation ModerationConfig `yaml:"moderation"`
	Retry      RetryConfig      `yaml:"retry"`
	Tracing    TracingConfig    `yaml:"tracing"`
	LogLevel   string           `yaml:"log_level"`
}

// LLMConfig configures the completion service
type LLMConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	BaseURL      string        `yaml:"base_url"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`

	// APIKey is only ever read from the environment
	APIKey string `yaml:"-"`
}

// ModerationConfig holds the banned-term list
type ModerationConfig struct {
	BannedTerms []string `yaml:"banned_terms"`
}

// RetryConfig configures retries of failed completion calls
type RetryConfig struct {
	MaxAttempts     int32         `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// TracingConfig configures optional trace export
type TracingConfig struct {
	OTel     OTelConfig     `yaml:"otel"`
	Langfuse LangfuseConfig `yaml:"langfuse"`
}

// OTelConfig configures the OpenTelemetry exporter
type OTelConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ServiceName       string `yaml:"service_name"`
	CollectorEndpoint string `yaml:"collector_endpoint"`
}

// LangfuseConfig configures Langfuse generation tracing. Keys and host are
// read by the Langfuse client from LANGFUSE_* environment variables.
type LangfuseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Environment string `yaml:"environment"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	terms := make([]string, len(guardrails.DefaultBannedTerms))
	copy(terms, guardrails.DefaultBannedTerms)

	return &Config{
		LLM: LLMConfig{
			Provider:     ProviderOpenAI,
			SystemPrompt: DefaultSystemPrompt,
			MaxTokens:    150,
			Temperature:  0.7,
		},
		Moderation: ModerationConfig{BannedTerms: terms},
		Retry: RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
		},
		Tracing: TracingConfig{
			OTel: OTelConfig{
				ServiceName:       "chatmod",
				CollectorEndpoint: "localhost:4317",
			},
			Langfuse: LangfuseConfig{Environment: "development"},
		},
		LogLevel: "warn",
	}
}

// Overrides carries command-line settings; empty fields are ignored
type Overrides struct {
	Provider string
	Model    string
	LogLevel string
}

// Load builds and validates the configuration.
func Load(path string, overrides Overrides) (*Config, error) {
	cfg, err := Read(path, overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration without validating it. A .env file in the
// working directory is loaded first if present; path may be empty to skip
// the YAML file. Precedence: overrides, environment, file, defaults.
func Read(path string, overrides Overrides) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.Getenv, overrides)
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	// existing environment variables win over the file
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator's --config flag
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string, overrides Overrides) {
	c.LLM.Provider = firstNonEmpty(overrides.Provider, getenv("CHATMOD_PROVIDER"), c.LLM.Provider)
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.Model = firstNonEmpty(overrides.Model, getenv("CHATMOD_MODEL"), c.LLM.Model)
	c.LogLevel = firstNonEmpty(overrides.LogLevel, getenv("CHATMOD_LOG_LEVEL"), c.LogLevel)

	// the credential follows the final provider choice
	c.LLM.APIKey = getenv(c.APIKeyEnv())
	if v := getenv(c.envPrefix() + "_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// APIKeyEnv names the environment variable holding the provider credential
func (c *Config) APIKeyEnv() string {
	return c.envPrefix() + "_API_KEY"
}

func (c *Config) envPrefix() string {
	if c.LLM.Provider == ProviderAnthropic {
		return "ANTHROPIC"
	}
	return "OPENAI"
}

// Validate checks the configuration for values the client cannot run with
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%s: %w", c.APIKeyEnv(), ErrMissingAPIKey)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	for i, term := range c.Moderation.BannedTerms {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("moderation.banned_terms[%d]: %w", i, guardrails.ErrEmptyTerm)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
