package policy

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalize_NumberedList(t *testing.T) {
	text := "1. Meals must be under $50. 2. Travel requires pre-approval."

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(pol.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d: %+v", len(pol.Rules), pol.Rules)
	}
	if pol.Monolithic {
		t.Error("Expected non-monolithic policy")
	}
	if pol.Rules[0].Text != "Meals must be under $50." {
		t.Errorf("Unexpected rule 1 text: %q", pol.Rules[0].Text)
	}
	if pol.Rules[1].Text != "Travel requires pre-approval." {
		t.Errorf("Unexpected rule 2 text: %q", pol.Rules[1].Text)
	}
}

func TestNormalize_MultilineBullets(t *testing.T) {
	text := `Expense Policy

- All expenses require an itemized receipt for reimbursement.
- Alcohol is not reimbursable under any circumstances at all.
- Hotel bookings must not exceed the standard corporate rate.`

	pol, err := Normalize("policy.md", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(pol.Rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d: %+v", len(pol.Rules), pol.Rules)
	}
}

func TestNormalize_UniqueOrderedIDs(t *testing.T) {
	text := `1) Receipts are required for every expense over ten dollars.
2) Expenses must be submitted within thirty days of purchase.
3) Personal purchases are never reimbursable by the company.`

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	seen := make(map[int]bool)
	for i, rule := range pol.Rules {
		if rule.ID != i+1 {
			t.Errorf("Rule %d has id %d, want %d", i, rule.ID, i+1)
		}
		if seen[rule.ID] {
			t.Errorf("Duplicate rule id %d", rule.ID)
		}
		seen[rule.ID] = true
	}
}

func TestNormalize_HeadingCategories(t *testing.T) {
	text := `# Meals

1. Meals must be under fifty dollars per person per day.

# Travel

2. Travel requires written pre-approval from a manager.`

	pol, err := Normalize("policy.md", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(pol.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d: %+v", len(pol.Rules), pol.Rules)
	}
	if pol.Rules[0].Category != "Meals" {
		t.Errorf("Rule 1 category = %q, want Meals", pol.Rules[0].Category)
	}
	if pol.Rules[1].Category != "Travel" {
		t.Errorf("Rule 2 category = %q, want Travel", pol.Rules[1].Category)
	}
}

func TestNormalize_SentenceFallback(t *testing.T) {
	text := "Meals must stay under fifty dollars. Travel always requires manager approval before booking. Receipts are mandatory for every reimbursement claim."

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(pol.Rules) != 3 {
		t.Fatalf("Expected 3 rules from sentence fallback, got %d: %+v", len(pol.Rules), pol.Rules)
	}
	if pol.Monolithic {
		t.Error("Expected non-monolithic policy")
	}
}

func TestNormalize_ShortFragmentsMerged(t *testing.T) {
	text := `1. All meal expenses require itemized receipts for reimbursement.
2. No exceptions.
3. Travel must be booked through the corporate travel portal.`

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(pol.Rules) != 2 {
		t.Fatalf("Expected fragment merged into 2 rules, got %d: %+v", len(pol.Rules), pol.Rules)
	}
	if !strings.Contains(pol.Rules[0].Text, "No exceptions.") {
		t.Errorf("Fragment not merged into preceding rule: %q", pol.Rules[0].Text)
	}
}

func TestNormalize_MonolithicFallback(t *testing.T) {
	text := "All expenses must be reasonable and approved by your manager"

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !pol.Monolithic {
		t.Error("Expected monolithic flag for unsegmentable policy")
	}
	if len(pol.Rules) != 1 {
		t.Fatalf("Expected 1 rule, got %d", len(pol.Rules))
	}
	if pol.Rules[0].ID != 1 {
		t.Errorf("Monolithic rule id = %d, want 1", pol.Rules[0].ID)
	}
	if pol.Rules[0].Text != text {
		t.Errorf("Monolithic rule should carry the whole document, got %q", pol.Rules[0].Text)
	}
}

func TestNormalize_EmptyPolicy(t *testing.T) {
	for _, text := range []string{"", "   \n\t  "} {
		_, err := Normalize("policy.txt", text)
		if err == nil {
			t.Fatalf("Expected error for empty policy %q", text)
		}
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("Expected *ParseError, got %T: %v", err, err)
		}
	}
}

func TestNormalize_OrderPreserved(t *testing.T) {
	text := `1. Zebra-class expenses are never reimbursable by the company.
2. Airline upgrades require written approval from a director.
3. Books and training materials are reimbursed up to 200 dollars.`

	pol, err := Normalize("policy.txt", text)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(pol.Rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(pol.Rules))
	}
	if !strings.HasPrefix(pol.Rules[0].Text, "Zebra") {
		t.Errorf("Document order not preserved, rule 1 = %q", pol.Rules[0].Text)
	}
	if !strings.HasPrefix(pol.Rules[2].Text, "Books") {
		t.Errorf("Document order not preserved, rule 3 = %q", pol.Rules[2].Text)
	}
}
