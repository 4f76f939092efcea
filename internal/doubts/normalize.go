// Package doubts holds the pure core of the doubt domain: tag normalization,
// cursor encoding, ingest payload decoding, export fetching, and the PDF
// renderer. Nothing in this package performs I/O except through the small
// interfaces it declares.
package doubts

import (
	"regexp"
	"strings"

	"doubtabase/internal/config"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeTag trims a tag and collapses internal whitespace runs to single
// spaces. Always returns a string, possibly empty.
func NormalizeTag(value string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(value), " ")
}

// UniqueTags normalizes each entry, drops empties, caps each entry at the tag
// length limit, and removes exact duplicates preserving first-seen order.
func UniqueTags(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, value := range values {
		normalized := NormalizeTag(value)
		if normalized == "" {
			continue
		}
		normalized = truncate(normalized, config.MaxTagLength)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}

	return result
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
