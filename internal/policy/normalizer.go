// Package policy normalizes a raw policy document into an ordered sequence
// of discrete, independently checkable rules.
package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pvolkov/expaudit/internal/model"
)

// minRuleWords is the threshold below which a segment is considered a
// fragment and merged into its neighbor.
const minRuleWords = 4

// ParseError indicates the policy document yielded zero rules
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("policy parse: %s", e.Reason)
}

var (
	// Numbered items may appear mid-line ("1. Meals... 2. Travel...")
	numberedRe = regexp.MustCompile(`(?:^|\s)(\d{1,3}[.)])\s+`)
	// Bullets and lettered items only count at line starts
	bulletRe  = regexp.MustCompile(`(?m)^[ \t]*([-*•]|\([a-z0-9]{1,3}\)|[a-z][.)])\s+`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
)

// Normalize segments policy text into rules. Segmentation prefers
// numbered/bulleted list markers, then sentence boundaries. Fragments
// shorter than minRuleWords merge into the preceding rule. A document that
// cannot be confidently segmented becomes a single monolithic rule so the
// engine prompt strategy can adapt.
func Normalize(source, text string) (model.Policy, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Policy{}, &ParseError{Reason: "empty policy document"}
	}

	policy := model.Policy{Source: source}

	segments := splitByMarkers(text)
	if len(segments) < 2 {
		segments = splitSentences(text)
	}

	segments = mergeFragments(segments)

	if len(segments) < 2 {
		// Unsegmentable: the whole document is one rule, flagged so
		// downstream consumers can adjust their prompt strategy.
		policy.Monolithic = true
		policy.Rules = []model.PolicyRule{{ID: 1, Text: text}}
		return policy, nil
	}

	headings := headingIndex(text)
	for i, seg := range segments {
		policy.Rules = append(policy.Rules, model.PolicyRule{
			ID:       i + 1,
			Text:     seg.text,
			Category: nearestHeading(headings, seg.offset),
		})
	}
	return policy, nil
}

type segment struct {
	text   string
	offset int // Byte offset of the segment start in the source text
}

// splitByMarkers splits on list-item markers when at least two are present
func splitByMarkers(text string) []segment {
	var points []int
	for _, m := range numberedRe.FindAllStringSubmatchIndex(text, -1) {
		points = append(points, m[2]) // Start of the marker group
	}
	for _, m := range bulletRe.FindAllStringSubmatchIndex(text, -1) {
		points = append(points, m[2])
	}
	if len(points) < 2 {
		return nil
	}
	dedupeSortInts(&points)

	var segs []segment
	for i, start := range points {
		end := len(text)
		if i+1 < len(points) {
			end = points[i+1]
		}
		body := strings.TrimSpace(stripMarker(text[start:end]))
		body = stripTrailingHeadings(body)
		if body != "" {
			segs = append(segs, segment{text: body, offset: start})
		}
	}
	return segs
}

// stripMarker removes the leading list marker itself
func stripMarker(s string) string {
	if loc := numberedRe.FindStringIndex(s); loc != nil && loc[0] == 0 {
		return s[loc[1]:]
	}
	if loc := bulletRe.FindStringIndex(s); loc != nil && loc[0] == 0 {
		return s[loc[1]:]
	}
	return s
}

// stripTrailingHeadings drops a heading line that belongs to the NEXT
// section but landed at the tail of this segment's span.
func stripTrailingHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" || headingRe.MatchString(last) {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitSentences is the fallback segmentation by sentence boundaries
func splitSentences(text string) []segment {
	flat := strings.ReplaceAll(text, "\n", " ")

	var segs []segment
	start := 0
	for i, r := range flat {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Avoid splitting on abbreviations and decimals
		if i+1 < len(flat) && flat[i+1] != ' ' && flat[i+1] != '\t' {
			continue
		}
		sentence := strings.TrimSpace(flat[start : i+1])
		if sentence != "" {
			segs = append(segs, segment{text: sentence, offset: start})
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(flat[start:]); rest != "" {
		segs = append(segs, segment{text: rest, offset: start})
	}
	return segs
}

// mergeFragments folds segments below the word threshold into the
// preceding rule (or the following one for a leading fragment).
func mergeFragments(segs []segment) []segment {
	var out []segment
	for _, seg := range segs {
		if len(strings.Fields(seg.text)) < minRuleWords && len(out) > 0 {
			out[len(out)-1].text += " " + seg.text
			continue
		}
		out = append(out, seg)
	}
	if len(out) >= 2 && len(strings.Fields(out[0].text)) < minRuleWords {
		out[1].text = out[0].text + " " + out[1].text
		out[1].offset = out[0].offset
		out = out[1:]
	}
	return out
}

type heading struct {
	offset int
	text   string
}

func headingIndex(text string) []heading {
	var hs []heading
	for _, m := range headingRe.FindAllStringSubmatchIndex(text, -1) {
		hs = append(hs, heading{offset: m[0], text: strings.TrimSpace(text[m[2]:m[3]])})
	}
	return hs
}

// nearestHeading returns the closest heading above the given offset
func nearestHeading(hs []heading, offset int) string {
	category := ""
	for _, h := range hs {
		if h.offset > offset {
			break
		}
		category = h.text
	}
	return category
}

func dedupeSortInts(points *[]int) {
	seen := make(map[int]bool, len(*points))
	var out []int
	for _, p := range *points {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	*points = out
}
