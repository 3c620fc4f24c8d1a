// Package strings holds small helpers for configuration lists.
package strings

import "strings"

// DedupeAndTrim trims each element and drops blanks and repeats, keeping
// first-seen order. Comma-separated env values such as "a, b,,a" come out
// as ["a", "b"].
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
