package engine

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every evaluation call
const SystemPrompt = "You are a finance controller in a company who is tasked with making sure " +
	"all expenses submitted by employees conform to the company's expense policy. " +
	"You judge only what the documents support: when a document does not contain " +
	"enough information to decide, say so instead of guessing."

// BuildPrompt constructs the user prompt for one evaluation request. The
// engine is asked for strict JSON so responses parse deterministically;
// free-text answers are still handled by the keyword fallback in parse.go.
func BuildPrompt(req EvaluationRequest) string {
	var b strings.Builder

	if req.Monolithic {
		b.WriteString("Company expense policy (treat as a single rule, id 1):\n")
	} else {
		b.WriteString("Company expense policy rules:\n")
	}
	for _, rule := range req.Rules {
		fmt.Fprintf(&b, "%d. %s\n", rule.ID, rule.Text)
	}

	b.WriteString("\nExpense document")
	if req.Record.Path != "" {
		fmt.Fprintf(&b, " (%s)", req.Record.Path)
	}
	b.WriteString(":\n")
	b.WriteString(req.Record.RawContent)
	b.WriteString("\n\n")

	b.WriteString("For each rule above, decide whether this expense document is compliant. ")
	b.WriteString(`Respond with ONLY a JSON array, one object per rule: ` +
		`[{"rule_id": <id>, "outcome": "compliant"|"violation"|"indeterminate", ` +
		`"rationale": "<one or two sentences citing the document>", "confidence": <0.0-1.0>}]. ` +
		`Use "indeterminate" when the document does not contain enough information to decide.`)

	return b.String()
}

// EstimateTokens approximates prompt token count (1 token ≈ 4 characters)
func EstimateTokens(s string) int {
	return len(s) / 4
}
