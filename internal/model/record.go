package model

// ExpenseRecord is one expense document under audit. Records are built by
// the loader and never mutated afterwards.
type ExpenseRecord struct {
	ID           string            `json:"id"`               // Unique within a batch, derived from the source path
	Path         string            `json:"path"`             // Original file or archive entry path
	RawContent   string            `json:"-"`                // Extracted text, always non-empty
	Fields       map[string]string `json:"fields,omitempty"` // Best-effort structured fields (amount, date, vendor)
	SourceFormat string            `json:"source_format"`    // Extension tag: txt, pdf, html, ...
}

// Well-known keys in ExpenseRecord.Fields.
const (
	FieldAmount = "amount"
	FieldDate   = "date"
	FieldVendor = "vendor"
)
