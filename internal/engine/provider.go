// Package engine is the judgment boundary: it formats (rules, record)
// pairs into model queries and parses responses into typed verdicts. All
// model non-determinism is isolated here; every call is independent and no
// provider holds conversation state, so verdicts are reproducible and
// testable against a substitutable fake.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pvolkov/expaudit/internal/model"
)

// Provider defines the interface to one inference engine implementation
type Provider interface {
	// Name returns the provider name
	Name() string

	// Evaluate judges one expense record against a group of policy rules
	// in a single engine call. Transport failures return *UnavailableError;
	// unparseable responses return indeterminate verdicts, never an error.
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error)

	// IsAvailable checks if the engine is reachable and configured
	IsAvailable(ctx context.Context) bool
}

// EvaluationRequest is one evaluation unit: a record and the rule group it
// is judged against.
type EvaluationRequest struct {
	Record model.ExpenseRecord
	Rules  []model.PolicyRule

	// Monolithic signals the rule group is a whole undivided policy
	// document, so the prompt asks for one overall judgment.
	Monolithic bool
}

// EvaluationResult carries one verdict per rule in the request group (or a
// single overall verdict for monolithic policies).
type EvaluationResult struct {
	Verdicts   []model.Verdict
	Model      string
	TokensUsed int
}

// Config holds engine provider configuration
type Config struct {
	// Provider name: "ollama", "openai", "anthropic"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g. Ollama host/port)
	BaseURL string

	// CallTimeout bounds each evaluation call
	CallTimeout time.Duration

	// MaxTokens for response generation
	MaxTokens int
}

// FromModel converts the runtime engine section to a provider config
func FromModel(cfg model.EngineConfig) Config {
	return Config{
		Provider:    cfg.Provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		CallTimeout: cfg.CallTimeout,
		MaxTokens:   cfg.MaxTokens,
	}
}

// NewProvider creates an engine provider based on configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown engine provider: %s (supported: ollama, openai, anthropic)", cfg.Provider)
	}
}
