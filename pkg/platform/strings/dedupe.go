// Package strings normalises the identifiers and lists that arrive from
// requests and configuration.
package strings

import (
	"strings"
)

// Code canonicalises a registry identifier such as a license type, a
// plate number or a chassis number: surrounding space is dropped and
// letters are upper-cased, so "a1 " and "A1" name the same thing.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// DedupeAndTrim trims each element and drops empties and repeats,
// keeping the first occurrence. A nil or empty input is returned as is.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
