package model

import "testing"

func TestDominance(t *testing.T) {
	tests := []struct {
		a, b, want Outcome
	}{
		{OutcomeCompliant, OutcomeCompliant, OutcomeCompliant},
		{OutcomeCompliant, OutcomeIndeterminate, OutcomeIndeterminate},
		{OutcomeIndeterminate, OutcomeCompliant, OutcomeIndeterminate},
		{OutcomeCompliant, OutcomeViolation, OutcomeViolation},
		{OutcomeViolation, OutcomeIndeterminate, OutcomeViolation},
		{OutcomeIndeterminate, OutcomeViolation, OutcomeViolation},
		{OutcomeViolation, OutcomeViolation, OutcomeViolation},
	}

	for _, tt := range tests {
		if got := Dominance(tt.a, tt.b); got != tt.want {
			t.Errorf("Dominance(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}
