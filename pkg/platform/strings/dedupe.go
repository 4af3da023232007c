// Package strings holds small helpers for identifier lists.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping first-seen order.
//
//	DedupeAndTrim([]string{" 42 ", "43", "42", ""}) // []string{"42", "43"}
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
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a comma-separated list and applies DedupeAndTrim.
// An empty input yields nil.
func SplitList(list string) []string {
	if list == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(list, ","))
}
