package loader

import (
	"regexp"
	"strings"

	"github.com/pvolkov/expaudit/internal/model"
)

// Best-effort field extraction. These never fail: a field that cannot be
// found is simply absent, and the engine judges the raw content either way.
var (
	labeledAmountRe = regexp.MustCompile(`(?i)(?:total|amount|sum|grand total)[^0-9$€£\n]{0,20}([$€£]?\s?\d[\d,]*(?:\.\d{2})?)`)
	bareAmountRe    = regexp.MustCompile(`[$€£]\s?\d[\d,]*(?:\.\d{2})?`)
	dateRe          = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/.]\d{1,2}[/.]\d{2,4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4})\b`)
	vendorRe        = regexp.MustCompile(`(?i)(?:vendor|merchant|payee|company|from)\s*[:\-]\s*(.{2,60})`)
)

// ExtractFields pulls optional structured fields (amount, date, vendor)
// out of record text.
func ExtractFields(text string) map[string]string {
	fields := make(map[string]string)

	if m := labeledAmountRe.FindStringSubmatch(text); m != nil {
		fields[model.FieldAmount] = strings.TrimSpace(m[1])
	} else if m := bareAmountRe.FindString(text); m != "" {
		fields[model.FieldAmount] = strings.TrimSpace(m)
	}

	if m := dateRe.FindStringSubmatch(text); m != nil {
		fields[model.FieldDate] = m[1]
	}

	if m := vendorRe.FindStringSubmatch(text); m != nil {
		vendor := strings.TrimSpace(m[1])
		if i := strings.IndexAny(vendor, "\r\n"); i >= 0 {
			vendor = strings.TrimSpace(vendor[:i])
		}
		if vendor != "" {
			fields[model.FieldVendor] = vendor
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
