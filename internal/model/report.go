package model

import "time"

// RecordReport is the per-record section of the batch report
type RecordReport struct {
	Record   ExpenseRecord `json:"record"`
	Verdicts []Verdict     `json:"verdicts"` // Sorted by rule id, never by completion order
	Status   Outcome       `json:"status"`   // violation dominates indeterminate dominates compliant
}

// PolicySummary identifies the policy a report was produced against
type PolicySummary struct {
	Source     string `json:"source"`
	RuleCount  int    `json:"rule_count"`
	Monolithic bool   `json:"monolithic"`
}

// Counts summarizes record statuses across the batch
type Counts struct {
	Compliant     int `json:"compliant"`
	Violation     int `json:"violation"`
	Indeterminate int `json:"indeterminate"`
}

// BatchReport is the complete result of one audit run. It is built once by
// the aggregator and immutable once returned; a cancelled run still yields
// a report covering the verdicts completed so far.
type BatchReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Engine      string         `json:"engine,omitempty"` // provider/model that produced the verdicts
	Policy      PolicySummary  `json:"policy"`
	Records     []RecordReport `json:"records"`
	Summary     Counts         `json:"summary"`
}

// TotalVerdicts counts verdicts across all records.
func (r *BatchReport) TotalVerdicts() int {
	n := 0
	for _, rec := range r.Records {
		n += len(rec.Verdicts)
	}
	return n
}
