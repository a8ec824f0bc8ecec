package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pvolkov/expaudit/internal/model"
)

// Renderer serializes batch reports to their output formats
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(rep *model.BatchReport, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the report as a human-readable Markdown document
func (r *Renderer) RenderMarkdown(rep *model.BatchReport, path string) error {
	var b strings.Builder

	b.WriteString("# Expense Policy Compliance Report\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	if rep.Engine != "" {
		fmt.Fprintf(&b, "- Engine: %s\n", rep.Engine)
	}
	fmt.Fprintf(&b, "- Policy: %s (%d rules", rep.Policy.Source, rep.Policy.RuleCount)
	if rep.Policy.Monolithic {
		b.WriteString(", monolithic")
	}
	b.WriteString(")\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Records |\n|---|---|\n")
	fmt.Fprintf(&b, "| compliant | %d |\n", rep.Summary.Compliant)
	fmt.Fprintf(&b, "| violation | %d |\n", rep.Summary.Violation)
	fmt.Fprintf(&b, "| indeterminate | %d |\n\n", rep.Summary.Indeterminate)

	b.WriteString("## Records\n\n")
	for _, rec := range rep.Records {
		fmt.Fprintf(&b, "### %s %s — %s\n\n", statusGlyph(rec.Status), rec.Record.ID, rec.Status)
		if len(rec.Record.Fields) > 0 {
			var parts []string
			for _, key := range []string{model.FieldAmount, model.FieldDate, model.FieldVendor} {
				if v, ok := rec.Record.Fields[key]; ok {
					parts = append(parts, fmt.Sprintf("%s: %s", key, v))
				}
			}
			if len(parts) > 0 {
				fmt.Fprintf(&b, "%s\n\n", strings.Join(parts, " · "))
			}
		}
		if len(rec.Verdicts) == 0 {
			b.WriteString("No verdicts completed for this record.\n\n")
			continue
		}
		b.WriteString("| Rule | Outcome | Rationale |\n|---|---|---|\n")
		for _, v := range rec.Verdicts {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", ruleLabel(v.RuleID), v.Outcome, mdCell(v.Rationale))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n")
		b.WriteString("Verdicts marked *indeterminate* mean compliance could not be established ")
		b.WriteString("(engine failure or ambiguous response), not that the expense violates policy.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a short run summary to stdout
func (r *Renderer) RenderSummary(rep *model.BatchReport) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println("  Expense Audit Complete")
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Printf("  Records:        %d\n", len(rep.Records))
	fmt.Printf("  Compliant:      %d\n", rep.Summary.Compliant)
	fmt.Printf("  Violations:     %d\n", rep.Summary.Violation)
	fmt.Printf("  Indeterminate:  %d\n", rep.Summary.Indeterminate)
	fmt.Println()

	for _, rec := range rep.Records {
		fmt.Printf("  %s %s (%s)\n", statusGlyph(rec.Status), rec.Record.ID, rec.Status)
	}
	fmt.Println()
}

func statusGlyph(status model.Outcome) string {
	switch status {
	case model.OutcomeCompliant:
		return "✓"
	case model.OutcomeViolation:
		return "✗"
	default:
		return "?"
	}
}

func ruleLabel(ruleID int) string {
	if ruleID == model.RuleOverall {
		return "overall"
	}
	return fmt.Sprintf("%d", ruleID)
}

// mdCell flattens rationale text into a single table cell
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 300 {
		s = s[:300] + "…"
	}
	return s
}
