// Package report aggregates raw verdicts into the final batch report. The
// aggregation is a pure function of its inputs: no engine calls, no clock
// reads beyond the generation timestamp, identical verdict sets always
// yield identical reports.
package report

import (
	"sort"
	"time"

	"github.com/pvolkov/expaudit/internal/model"
)

// Aggregate builds the batch report from the completed verdict set. Every
// input record appears in the output, in loader order; a record with no
// verdicts (cancelled run, nothing completed) is reported as indeterminate
// rather than silently dropped. Per-record verdicts are ordered by rule id,
// never by completion order.
func Aggregate(policy model.Policy, records []model.ExpenseRecord, verdicts []model.Verdict, engineName string) *model.BatchReport {
	byRecord := make(map[string][]model.Verdict, len(records))
	for _, v := range verdicts {
		byRecord[v.RecordID] = append(byRecord[v.RecordID], v)
	}

	reports := make([]model.RecordReport, 0, len(records))
	var counts model.Counts

	for _, record := range records {
		vs := byRecord[record.ID]
		sort.SliceStable(vs, func(i, j int) bool {
			return vs[i].RuleID < vs[j].RuleID
		})

		status := recordStatus(vs)
		switch status {
		case model.OutcomeViolation:
			counts.Violation++
		case model.OutcomeCompliant:
			counts.Compliant++
		default:
			counts.Indeterminate++
		}

		reports = append(reports, model.RecordReport{
			Record:   record,
			Verdicts: vs,
			Status:   status,
		})
	}

	return &model.BatchReport{
		GeneratedAt: time.Now().UTC(),
		Engine:      engineName,
		Policy: model.PolicySummary{
			Source:     policy.Source,
			RuleCount:  len(policy.Rules),
			Monolithic: policy.Monolithic,
		},
		Records: reports,
		Summary: counts,
	}
}

// recordStatus derives the aggregate status for one record. Violation
// dominates indeterminate, which dominates compliant; no verdicts at all
// means nothing was established.
func recordStatus(verdicts []model.Verdict) model.Outcome {
	if len(verdicts) == 0 {
		return model.OutcomeIndeterminate
	}
	status := model.OutcomeCompliant
	for _, v := range verdicts {
		status = model.Dominance(status, v.Outcome)
	}
	return status
}
