package engine

import "fmt"

// UnavailableError indicates the engine boundary call itself failed
// (connection refused, timeout, HTTP error). Distinct from response-parse
// ambiguity, which never surfaces as an error: the orchestrator retries
// unavailability, while unparseable responses become indeterminate verdicts.
type UnavailableError struct {
	Provider string
	Cause    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("engine unavailable (%s): %v", e.Provider, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
