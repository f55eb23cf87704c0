package common

import "strconv"

// AtoiDefault parses a query parameter as an integer, returning def when the
// value is empty or not a number. Callers apply their own range checks.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
