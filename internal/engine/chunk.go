package engine

import (
	"context"

	"github.com/pvolkov/expaudit/internal/model"
)

// Evaluator wraps a provider with context-budget handling: when a record's
// content plus the full rule group would overflow the engine's context
// window, the rule group is split into subsets that fit and one call is
// issued per subset, with the sub-results merged into one logical result.
type Evaluator struct {
	provider Provider
	budget   int // Prompt token budget; 0 disables chunking
}

// NewEvaluator wraps a provider with the given prompt token budget
func NewEvaluator(provider Provider, budget int) *Evaluator {
	return &Evaluator{provider: provider, budget: budget}
}

// Name returns the underlying provider name
func (e *Evaluator) Name() string { return e.provider.Name() }

// IsAvailable delegates to the underlying provider
func (e *Evaluator) IsAvailable(ctx context.Context) bool {
	return e.provider.IsAvailable(ctx)
}

// Evaluate issues one or more engine calls for the request, chunking by
// rule subset when the prompt would exceed the context budget. A transport
// failure on any chunk fails the whole unit so the orchestrator's retry
// policy applies to it as one unit.
func (e *Evaluator) Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResult, error) {
	if e.budget <= 0 || len(req.Rules) <= 1 || EstimateTokens(BuildPrompt(req)) <= e.budget {
		return e.provider.Evaluate(ctx, req)
	}

	merged := &EvaluationResult{}
	for _, group := range e.splitRules(req) {
		sub := req
		sub.Rules = group
		res, err := e.provider.Evaluate(ctx, sub)
		if err != nil {
			return nil, err
		}
		merged.Verdicts = append(merged.Verdicts, res.Verdicts...)
		merged.TokensUsed += res.TokensUsed
		merged.Model = res.Model
	}
	return merged, nil
}

// splitRules greedily packs rules into groups whose prompts fit the
// budget. A single rule that still overflows gets its own group: the
// record content itself dominates the prompt and cannot be split further.
func (e *Evaluator) splitRules(req EvaluationRequest) [][]model.PolicyRule {
	var groups [][]model.PolicyRule
	var current []model.PolicyRule

	fits := func(rules []model.PolicyRule) bool {
		probe := req
		probe.Rules = rules
		return EstimateTokens(BuildPrompt(probe)) <= e.budget
	}

	for _, rule := range req.Rules {
		candidate := append(current[:len(current):len(current)], rule)
		if len(current) > 0 && !fits(candidate) {
			groups = append(groups, current)
			current = []model.PolicyRule{rule}
			continue
		}
		current = candidate
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
