package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pvolkov/expaudit/internal/cache"
	"github.com/pvolkov/expaudit/internal/engine"
	"github.com/pvolkov/expaudit/internal/model"
	"github.com/pvolkov/expaudit/internal/worker"
)

// Orchestrator schedules evaluation units over a bounded worker pool,
// handles retry and timeout at the engine boundary, and assembles the raw
// verdict set. It exclusively owns the in-flight verdict collection; the
// aggregator takes over once the run completes.
type Orchestrator struct {
	provider engine.Provider
	cfg      *model.Config
	limiter  *worker.Limiter
	cache    *cache.VerdictCache // nil when disabled

	// sleep is injectable so retry backoff is testable
	sleep func(time.Duration)
}

// NewOrchestrator creates an orchestrator around an engine provider
func NewOrchestrator(provider engine.Provider, cfg *model.Config) *Orchestrator {
	var c *cache.VerdictCache
	if cfg.Cache.Enabled {
		c = cache.NewVerdictCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		limiter:  worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		cache:    c,
		sleep:    time.Sleep,
	}
}

// evaluationUnit is one scheduled (record, rule group) pair
type evaluationUnit struct {
	record     model.ExpenseRecord
	rules      []model.PolicyRule
	monolithic bool
}

// unitResult carries the verdicts of one completed unit
type unitResult struct {
	verdicts []model.Verdict
	err      error
}

func (r *unitResult) GetError() error { return r.err }

// Run evaluates every record against the policy and returns the completed
// verdict set. Units are seeded deterministically (records in loader
// order, rules in policy order). A cancelled context stops scheduling and
// abandons in-flight calls; verdicts completed by then are still returned
// so a partial report can be produced.
func (o *Orchestrator) Run(ctx context.Context, policy model.Policy, records []model.ExpenseRecord) []model.Verdict {
	units := o.seedUnits(policy, records)
	if len(units) == 0 {
		return nil
	}

	pool := worker.NewPool(ctx, o.cfg.Concurrency.Workers, len(units))
	pool.Start()

	for _, unit := range units {
		pool.Submit(&evaluationJob{unit: unit, orch: o})
	}

	results := pool.Wait()

	var verdicts []model.Verdict
	for _, res := range results {
		if ur, ok := res.(*unitResult); ok {
			verdicts = append(verdicts, ur.verdicts...)
		}
	}
	return verdicts
}

// seedUnits builds the evaluation queue. Default granularity is per-rule;
// per-ruleset mode (and monolithic policies) issue one unit per record and
// rely on the adapter's rule-subset chunking for oversized prompts.
func (o *Orchestrator) seedUnits(policy model.Policy, records []model.ExpenseRecord) []evaluationUnit {
	var units []evaluationUnit
	for _, record := range records {
		if o.cfg.Evaluation.Mode == model.ModePerRuleSet || policy.Monolithic {
			units = append(units, evaluationUnit{
				record:     record,
				rules:      policy.Rules,
				monolithic: policy.Monolithic,
			})
			continue
		}
		for _, rule := range policy.Rules {
			units = append(units, evaluationUnit{
				record: record,
				rules:  []model.PolicyRule{rule},
			})
		}
	}
	return units
}

// evaluationJob adapts an evaluation unit to the worker pool
type evaluationJob struct {
	unit evaluationUnit
	orch *Orchestrator
}

// Execute runs one evaluation unit: rate limit, cache lookup, engine call
// with retry, degrade to indeterminate on exhaustion.
func (j *evaluationJob) Execute(ctx context.Context) worker.Result {
	return j.orch.evaluateUnit(ctx, j.unit)
}

func (o *Orchestrator) evaluateUnit(ctx context.Context, unit evaluationUnit) *unitResult {
	req := engine.EvaluationRequest{
		Record:     unit.record,
		Rules:      unit.rules,
		Monolithic: unit.monolithic,
	}

	key := o.cacheKey(unit)
	if verdicts, ok := o.cachedVerdicts(key, unit.record.ID); ok {
		return &unitResult{verdicts: verdicts}
	}

	verdicts, err := o.evaluateWithRetry(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled: produce nothing so the unit is reported as
			// incomplete rather than judged.
			return &unitResult{err: ctx.Err()}
		}
		// Retries exhausted: degrade this unit to indeterminate verdicts
		// instead of aborting the batch.
		return &unitResult{
			verdicts: indeterminateVerdicts(req, fmt.Sprintf("engine unavailable: %v", err)),
			err:      err,
		}
	}

	o.storeVerdicts(key, verdicts)
	return &unitResult{verdicts: verdicts}
}

func (o *Orchestrator) evaluateWithRetry(ctx context.Context, req engine.EvaluationRequest) ([]model.Verdict, error) {
	attempts := o.cfg.Retry.Attempts
	backoff := o.cfg.Retry.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := o.provider.Evaluate(ctx, req)
		if err == nil {
			return res.Verdicts, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < attempts {
			o.sleep(backoff << uint(attempt))
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) cacheKey(unit evaluationUnit) string {
	if o.cache == nil {
		return ""
	}
	return cache.VerdictKey(unit.record.RawContent, unit.rules)
}

func (o *Orchestrator) cachedVerdicts(key, recordID string) ([]model.Verdict, bool) {
	if o.cache == nil || key == "" {
		return nil, false
	}
	verdicts, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	// Cached verdicts came from a byte-identical document judged against
	// this exact rule group; rebind them to this record's identity.
	for i := range verdicts {
		verdicts[i].RecordID = recordID
	}
	return verdicts, true
}

func (o *Orchestrator) storeVerdicts(key string, verdicts []model.Verdict) {
	if o.cache == nil || key == "" {
		return
	}
	o.cache.Set(key, verdicts, o.cfg.Cache.TTL)
}

func indeterminateVerdicts(req engine.EvaluationRequest, rationale string) []model.Verdict {
	verdicts := make([]model.Verdict, 0, len(req.Rules))
	for _, rule := range req.Rules {
		verdicts = append(verdicts, model.Verdict{
			RecordID:  req.Record.ID,
			RuleID:    rule.ID,
			Outcome:   model.OutcomeIndeterminate,
			Rationale: rationale,
		})
	}
	return verdicts
}
