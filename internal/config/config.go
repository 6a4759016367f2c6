package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime setting, populated from environment
// variables with sensible development defaults.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Provider selection and credentials.
	AIProvider      string `envconfig:"AI_PROVIDER" default:"mock"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIMaxTokens int    `envconfig:"OPENAI_MAX_TOKENS" default:"1000"`
	ClaudeAPIKey    string `envconfig:"CLAUDE_API_KEY"`
	ClaudeModel     string `envconfig:"CLAUDE_MODEL" default:"claude-3-haiku-20240307"`

	// Quality pipeline tuning.
	MinQualityScore float64 `envconfig:"MIN_QUALITY_SCORE" default:"70"`
	MaxRetries      int     `envconfig:"MAX_RETRIES" default:"3"`

	// Access control.
	RequestLimitPerHour int    `envconfig:"REQUEST_LIMIT_PER_HOUR" default:"100"`
	InternalAPIKey      string `envconfig:"INTERNAL_API_KEY"`

	// Caching.
	UseCache bool          `envconfig:"USE_CACHE" default:"true"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	RedisURL string        `envconfig:"REDIS_URL"`

	PromptsDir string `envconfig:"PROMPTS_DIR"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.AIProvider {
	case "mock", "openai", "claude":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	if c.MinQualityScore < 0 || c.MinQualityScore > 100 {
		return fmt.Errorf("MIN_QUALITY_SCORE must be in [0,100], got %g", c.MinQualityScore)
	}
	if c.RequestLimitPerHour < 1 {
		return fmt.Errorf("REQUEST_LIMIT_PER_HOUR must be at least 1, got %d", c.RequestLimitPerHour)
	}
	return nil
}

// SlogLevel maps the configured level string onto slog levels,
// defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
