package model

// Outcome classifies a single compliance judgment
type Outcome string

const (
	OutcomeCompliant     Outcome = "compliant"
	OutcomeViolation     Outcome = "violation"
	OutcomeIndeterminate Outcome = "indeterminate" // Could not be established; never a compliance judgment
)

// RuleOverall marks a verdict that covers the whole rule set rather than
// one rule.
const RuleOverall = 0

// Verdict is the outcome of checking one record against one rule (or the
// whole rule set when RuleID == RuleOverall). Exactly one verdict exists
// per scheduled (record, rule) evaluation unit.
type Verdict struct {
	RecordID   string  `json:"record_id"`
	RuleID     int     `json:"rule_id"`
	Outcome    Outcome `json:"outcome"`
	Rationale  string  `json:"rationale,omitempty"`  // Engine-provided justification, or raw response when unparseable
	Confidence float64 `json:"confidence,omitempty"` // 0 when the engine reported none
}

// Dominance returns the stronger of two outcomes for aggregation:
// violation > indeterminate > compliant.
func Dominance(a, b Outcome) Outcome {
	if a == OutcomeViolation || b == OutcomeViolation {
		return OutcomeViolation
	}
	if a == OutcomeIndeterminate || b == OutcomeIndeterminate {
		return OutcomeIndeterminate
	}
	return OutcomeCompliant
}
