// Package config loads prompt-architect configuration via Viper.
//
// Configuration is merged from defaults, an optional architect.toml found by
// walking up the directory tree, and PROMPTARCH_* environment variables.
package config

// Config represents the core prompt-architect configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Search     SearchConfig     `mapstructure:"search"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AnthropicConfig configures the Anthropic API client
type AnthropicConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	FastModel   string  `mapstructure:"fast_model"`  // lightweight tier
	SmartModel  string  `mapstructure:"smart_model"` // heavyweight tier
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// ThinkingBudgetTokens is the extended reasoning budget applied in
	// reasoning mode.
	ThinkingBudgetTokens int `mapstructure:"thinking_budget_tokens"`
}

// RateLimitsConfig configures the per-tier token buckets
type RateLimitsConfig struct {
	Fast  TierLimitConfig `mapstructure:"fast"`
	Heavy TierLimitConfig `mapstructure:"heavy"`
}

// TierLimitConfig configures one tier's token bucket.
// Refill rate is CallsPerMinute/60 tokens per second.
type TierLimitConfig struct {
	Capacity       float64 `mapstructure:"capacity"`
	CallsPerMinute float64 `mapstructure:"calls_per_minute"`
}

// RetryConfig configures the exponential-backoff retry wrapper
type RetryConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	InitialDelayMS int `mapstructure:"initial_delay_ms"`
	MaxDelayMS     int `mapstructure:"max_delay_ms"`
}

// EmbeddingsConfig configures the local embedding endpoint (Ollama-compatible)
type EmbeddingsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// SearchConfig configures the ranking engine and debounced search
type SearchConfig struct {
	DebounceMS  int `mapstructure:"debounce_ms"`
	ResultLimit int `mapstructure:"result_limit"`
}
