package engine

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pvolkov/expaudit/internal/model"
)

// verdictPayload is the JSON shape the prompt asks the engine for
type verdictPayload struct {
	RuleID     int     `json:"rule_id"`
	Outcome    string  `json:"outcome"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// ParseVerdicts maps a raw engine response to exactly one verdict per rule
// in the request group. Parsing never fails: structured JSON is preferred,
// then deterministic keyword extraction on free text, and anything still
// ambiguous resolves to indeterminate with the raw response preserved as
// the rationale for human review.
func ParseVerdicts(req EvaluationRequest, raw string) []model.Verdict {
	raw = strings.TrimSpace(raw)

	if payloads, ok := parseJSON(raw); ok {
		return verdictsFromPayloads(req, payloads, raw)
	}

	if outcome, ok := keywordOutcome(raw); ok {
		return uniformVerdicts(req, outcome, raw, 0)
	}

	return uniformVerdicts(req, model.OutcomeIndeterminate, raw, 0)
}

func parseJSON(raw string) ([]verdictPayload, bool) {
	cleaned := cleanJSONString(raw)

	var payloads []verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &payloads); err == nil && len(payloads) > 0 {
		return payloads, true
	}

	var single verdictPayload
	if err := json.Unmarshal([]byte(cleaned), &single); err == nil && single.Outcome != "" {
		return []verdictPayload{single}, true
	}

	return nil, false
}

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// cleanJSONString strips code fences, surrounding prose, and trailing
// commas that local models commonly emit around JSON.
func cleanJSONString(raw string) string {
	s := raw
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	// Trim prose around the outermost JSON value
	start := strings.IndexAny(s, "[{")
	if start >= 0 {
		end := strings.LastIndexAny(s, "]}")
		if end > start {
			s = s[start : end+1]
		}
	}

	s = strings.ReplaceAll(s, `\n`, "\n")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func verdictsFromPayloads(req EvaluationRequest, payloads []verdictPayload, raw string) []model.Verdict {
	// A single judgment for a multi-rule group applies to every rule
	if len(payloads) == 1 && payloads[0].RuleID == 0 && len(req.Rules) > 1 {
		outcome := normalizeOutcome(payloads[0].Outcome, raw)
		return uniformVerdicts(req, outcome, payloads[0].Rationale, payloads[0].Confidence)
	}

	byRule := make(map[int]verdictPayload, len(payloads))
	for _, p := range payloads {
		if _, dup := byRule[p.RuleID]; !dup {
			byRule[p.RuleID] = p
		}
	}

	verdicts := make([]model.Verdict, 0, len(req.Rules))
	for _, rule := range req.Rules {
		p, ok := byRule[rule.ID]
		if !ok && len(req.Rules) == 1 && len(payloads) == 1 {
			// Engines often omit or mangle rule_id for single-rule calls
			p, ok = payloads[0], true
		}
		if !ok {
			verdicts = append(verdicts, model.Verdict{
				RecordID:  req.Record.ID,
				RuleID:    rule.ID,
				Outcome:   model.OutcomeIndeterminate,
				Rationale: "no judgment returned for this rule; raw response: " + raw,
			})
			continue
		}
		verdicts = append(verdicts, model.Verdict{
			RecordID:   req.Record.ID,
			RuleID:     rule.ID,
			Outcome:    normalizeOutcome(p.Outcome, raw),
			Rationale:  rationaleOr(p.Rationale, raw),
			Confidence: clampConfidence(p.Confidence),
		})
	}
	return verdicts
}

func uniformVerdicts(req EvaluationRequest, outcome model.Outcome, rationale string, confidence float64) []model.Verdict {
	verdicts := make([]model.Verdict, 0, len(req.Rules))
	for _, rule := range req.Rules {
		verdicts = append(verdicts, model.Verdict{
			RecordID:   req.Record.ID,
			RuleID:     rule.ID,
			Outcome:    outcome,
			Rationale:  rationale,
			Confidence: clampConfidence(confidence),
		})
	}
	return verdicts
}

// normalizeOutcome maps an engine-provided outcome token to the closed
// verdict set, falling back to keyword extraction on the full response.
func normalizeOutcome(s, raw string) model.Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compliant", "compliance", "pass", "yes":
		return model.OutcomeCompliant
	case "violation", "violations", "non-compliant", "noncompliant", "fail", "no":
		return model.OutcomeViolation
	case "indeterminate", "unknown", "unclear":
		return model.OutcomeIndeterminate
	}
	if outcome, ok := keywordOutcome(raw); ok {
		return outcome
	}
	return model.OutcomeIndeterminate
}

// violation phrases are checked first: "not compliant" must not match the
// compliant keywords.
var (
	violationPhrases = []string{
		"violation", "violates", "not compliant", "non-compliant",
		"noncompliant", "does not comply", "does not conform",
		"not in compliance", "fails to comply", "exceeds the",
	}
	compliantPhrases = []string{
		"compliant", "complies", "conforms", "in compliance",
		"meets the policy",
	}
)

// keywordOutcome deterministically maps free text to an outcome
func keywordOutcome(raw string) (model.Outcome, bool) {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "no violation") {
		return model.OutcomeCompliant, true
	}
	for _, p := range violationPhrases {
		if strings.Contains(lower, p) {
			return model.OutcomeViolation, true
		}
	}
	for _, p := range compliantPhrases {
		if strings.Contains(lower, p) {
			return model.OutcomeCompliant, true
		}
	}
	return "", false
}

func rationaleOr(rationale, raw string) string {
	if strings.TrimSpace(rationale) != "" {
		return rationale
	}
	return raw
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
