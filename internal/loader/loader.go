// Package loader resolves an input path (zip archive, directory, or single
// file) into a stable, ordered sequence of expense records, plus the policy
// document text.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pvolkov/expaudit/internal/model"
)

// Loader turns raw document entries into expense records
type Loader struct {
	extractors map[string]Extractor
}

// NewLoader creates a loader with the default extraction registry
func NewLoader() *Loader {
	return &Loader{extractors: DefaultExtractors()}
}

// RegisterExtractor plugs in an extraction strategy for a content type
// (lowercase extension including the dot), e.g. an OCR collaborator for
// ".png". Overrides any default for the same extension.
func (l *Loader) RegisterExtractor(ext string, fn Extractor) {
	l.extractors[strings.ToLower(ext)] = fn
}

// Load resolves the input path and extracts every entry into an
// ExpenseRecord. Record order is lexicographic by entry path and stable
// across runs. Every record has a unique ID and non-empty RawContent; an
// entry that cannot be decoded fails the whole load with
// *UnsupportedFormatError.
func (l *Loader) Load(inputPath string) ([]model.ExpenseRecord, error) {
	source, err := ResolveSource(inputPath)
	if err != nil {
		return nil, err
	}

	entries, err := source.Entries()
	if err != nil {
		return nil, err
	}

	records := make([]model.ExpenseRecord, 0, len(entries))
	seen := make(map[string]int)

	for _, entry := range entries {
		text, format, err := l.extractEntry(entry)
		if err != nil {
			return nil, err
		}

		id := entry.Path
		if n := seen[id]; n > 0 {
			// Zip archives may carry duplicate entry names
			id = fmt.Sprintf("%s#%d", id, n+1)
		}
		seen[entry.Path]++

		records = append(records, model.ExpenseRecord{
			ID:           id,
			Path:         entry.Path,
			RawContent:   text,
			Fields:       ExtractFields(text),
			SourceFormat: format,
		})
	}

	return records, nil
}

// LoadPolicy extracts the policy document text from a single file path
func (l *Loader) LoadPolicy(policyPath string) (string, error) {
	source, err := ResolveSource(policyPath)
	if err != nil {
		return "", err
	}

	entries, err := source.Entries()
	if err != nil {
		return "", err
	}
	if len(entries) != 1 {
		return "", fmt.Errorf("policy path must be a single document, got %d entries: %s", len(entries), policyPath)
	}

	text, _, err := l.extractEntry(entries[0])
	if err != nil {
		return "", err
	}
	return text, nil
}

func (l *Loader) extractEntry(entry Entry) (text, format string, err error) {
	ext := strings.ToLower(filepath.Ext(entry.Path))
	extract, ok := l.extractors[ext]
	if !ok {
		return "", "", &UnsupportedFormatError{Path: entry.Path, Reason: fmt.Sprintf("no extractor for %q", ext)}
	}

	data, err := entry.Read()
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", entry.Path, err)
	}

	text, err = extract(entry.Path, data)
	if err != nil {
		return "", "", &UnsupportedFormatError{Path: entry.Path, Reason: err.Error()}
	}
	if text == "" {
		return "", "", &UnsupportedFormatError{Path: entry.Path, Reason: "no extractable text"}
	}

	return text, strings.TrimPrefix(ext, "."), nil
}
