// Package pipeline wires the audit stages: load documents, normalize the
// policy, orchestrate engine evaluations, aggregate the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pvolkov/expaudit/internal/engine"
	"github.com/pvolkov/expaudit/internal/loader"
	"github.com/pvolkov/expaudit/internal/model"
	"github.com/pvolkov/expaudit/internal/policy"
	"github.com/pvolkov/expaudit/internal/report"
)

// ErrNoVerdicts indicates the run completed without a single verdict: the
// engine was entirely unreachable before any unit could be judged.
var ErrNoVerdicts = errors.New("no verdicts obtained")

// ErrEmptyInput indicates the input path contained no expense documents
var ErrEmptyInput = errors.New("no expense documents found in input")

// Pipeline orchestrates the complete audit
type Pipeline struct {
	loader       *loader.Loader
	provider     engine.Provider
	orchestrator *Orchestrator
	renderer     *Renderer
	config       *model.Config
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	provider, err := engine.NewProvider(engine.FromModel(cfg.Engine))
	if err != nil {
		return nil, err
	}

	evaluator := engine.NewEvaluator(provider, cfg.Evaluation.ContextBudget)

	return &Pipeline{
		loader:       loader.NewLoader(),
		provider:     evaluator,
		orchestrator: NewOrchestrator(evaluator, cfg),
		renderer:     NewRenderer(cfg.Output.IncludeFooter),
		config:       cfg,
	}, nil
}

// Run performs one complete audit: policy and records in, batch report out.
// Fatal input failures (missing paths, undecodable documents, unparseable
// policy, empty input) abort before any evaluation. An engine that fails
// the availability preflight aborts with *engine.UnavailableError wrapped
// around ErrNoVerdicts semantics; an engine that degrades mid-run does not.
func (p *Pipeline) Run(ctx context.Context, policyPath, inputPath string) (*model.BatchReport, error) {
	policyText, err := p.loader.LoadPolicy(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	pol, err := policy.Normalize(policyPath, policyText)
	if err != nil {
		return nil, err
	}
	p.verbosef("✓ Normalized policy: %d rules", len(pol.Rules))
	if pol.Monolithic {
		p.verbosef("  (policy could not be segmented; treating as a single rule)")
	}

	records, err := p.loader.Load(inputPath)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, inputPath)
	}
	p.verbosef("✓ Loaded %d expense documents", len(records))

	// Preflight: a refused connection before any unit starts means zero
	// verdicts are obtainable, which is distinct from mid-run degradation.
	if !p.provider.IsAvailable(ctx) {
		return nil, &engine.UnavailableError{
			Provider: p.provider.Name(),
			Cause:    fmt.Errorf("availability check failed before evaluation"),
		}
	}

	p.verbosef("⚙️  Evaluating %d documents against %d rules (%s, %d workers)...",
		len(records), len(pol.Rules), p.config.Evaluation.Mode, p.config.Concurrency.Workers)

	verdicts := p.orchestrator.Run(ctx, pol, records)

	rep := report.Aggregate(pol, records, verdicts, p.engineLabel())

	if rep.TotalVerdicts() == 0 {
		return rep, ErrNoVerdicts
	}
	p.verbosef("✓ Collected %d verdicts", rep.TotalVerdicts())

	return rep, nil
}

// RenderReport renders the report to the configured outputs
func (p *Pipeline) RenderReport(rep *model.BatchReport, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(rep, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.verbosef("✓ Wrote JSON: %s", jsonPath)
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(rep, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.verbosef("✓ Wrote Markdown: %s", mdPath)
	}

	p.renderer.RenderSummary(rep)
	return nil
}

func (p *Pipeline) engineLabel() string {
	return fmt.Sprintf("%s/%s", p.provider.Name(), p.config.Engine.Model)
}

func (p *Pipeline) verbosef(format string, args ...interface{}) {
	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
