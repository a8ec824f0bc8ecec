package model

import "time"

// Config is the full runtime configuration.
//
// Hierarchy (highest to lowest priority): CLI flags, EXPAUDIT_* environment
// variables, ~/.expaudit/config.yaml, the defaults below.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Evaluation  EvaluationConfig  `yaml:"evaluation"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Retry       RetryConfig       `yaml:"retry"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache"`
	Output      OutputConfig      `yaml:"output"`
}

// EngineConfig configures the judgment engine boundary
type EngineConfig struct {
	Provider    string        `yaml:"provider"`     // ollama, openai, anthropic
	Model       string        `yaml:"model"`        // Provider-specific model name
	BaseURL     string        `yaml:"base_url"`     // Custom endpoint (host/port), e.g. Ollama
	APIKey      string        `yaml:"-"`            // Never persisted to the config file
	CallTimeout time.Duration `yaml:"call_timeout"` // Per evaluation call
	MaxTokens   int           `yaml:"max_tokens"`   // Response budget per call
}

// EvaluationMode selects the evaluation unit granularity.
type EvaluationMode string

const (
	// ModePerRule issues one engine call per (record, rule) pair.
	// Fine-grained rationale, higher call volume. This is the default.
	ModePerRule EvaluationMode = "per-rule"
	// ModePerRuleSet issues one call per record covering all rules,
	// chunked into rule subsets when the context budget is exceeded.
	ModePerRuleSet EvaluationMode = "per-ruleset"
)

// EvaluationConfig controls how evaluation units are formed
type EvaluationConfig struct {
	Mode          EvaluationMode `yaml:"mode"`
	ContextBudget int            `yaml:"context_budget"` // Prompt token budget before rule-subset chunking
}

// ConcurrencyConfig bounds the evaluation worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// RetryConfig controls retries on engine-unavailable failures
type RetryConfig struct {
	Attempts int           `yaml:"attempts"` // Extra attempts after the first call
	Backoff  time.Duration `yaml:"backoff"`  // Base backoff, doubled per attempt
}

// RateLimitConfig throttles calls to the engine
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CacheConfig controls the in-run verdict cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// OutputConfig controls report rendering and progress output
type OutputConfig struct {
	Verbose       bool `yaml:"verbose"`
	IncludeFooter bool `yaml:"include_footer"`
}

// DefaultConfig returns sensible defaults for a local single-consumer
// inference engine.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Provider:    "ollama",
			Model:       "mistral",
			CallTimeout: 2 * time.Minute,
			MaxTokens:   1000,
		},
		Evaluation: EvaluationConfig{
			Mode:          ModePerRule,
			ContextBudget: 8000,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Retry: RetryConfig{
			Attempts: 2,
			Backoff:  time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
	}
}
