package config

import (
	"github.com/spf13/viper"
)

// Model tier defaults. The fast tier favors latency and quota headroom, the
// smart tier favors quality.
const (
	DefaultFastModel  = "claude-3-5-haiku-latest"
	DefaultSmartModel = "claude-sonnet-4-20250514"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "architect.db")

	// Anthropic defaults
	v.SetDefault("anthropic.fast_model", DefaultFastModel)
	v.SetDefault("anthropic.smart_model", DefaultSmartModel)
	v.SetDefault("anthropic.temperature", 0.2) // Deterministic
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.thinking_budget_tokens", 8192)

	// Per-tier token buckets. Refill rate is calls_per_minute/60 per second.
	v.SetDefault("rate_limits.fast.capacity", 15.0)
	v.SetDefault("rate_limits.fast.calls_per_minute", 15.0)
	v.SetDefault("rate_limits.heavy.capacity", 2.0)
	v.SetDefault("rate_limits.heavy.calls_per_minute", 2.0)

	// Retry defaults
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay_ms", 1000)
	v.SetDefault("retry.max_delay_ms", 30000)

	// Local embeddings (Ollama) defaults
	v.SetDefault("embeddings.enabled", false)
	v.SetDefault("embeddings.base_url", "http://localhost:11434")
	v.SetDefault("embeddings.model", "nomic-embed-text")
	v.SetDefault("embeddings.timeout_seconds", 60)
	v.SetDefault("embeddings.requests_per_minute", 60)

	// Search defaults
	v.SetDefault("search.debounce_ms", 50)
	v.SetDefault("search.result_limit", 20)
}

// BindSensitiveEnvVars binds secrets to environment variables so they never
// need to live in a config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("anthropic.api_key", "PROMPTARCH_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
}
