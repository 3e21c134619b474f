// Package strings provides string slice helpers for normalizing extracted
// field values.
package strings

import "strings"

// DedupeAndTrimLower trims, lowercases, and deduplicates a slice, dropping
// entries that are empty after trimming. First-seen order is preserved.
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		normalized := strings.ToLower(strings.TrimSpace(v))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; !ok {
			seen[normalized] = struct{}{}
			result = append(result, normalized)
		}
	}

	return result
}
