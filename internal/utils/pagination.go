// Package utils provides small, generic helpers shared across layers.
package utils

import "strconv"

// AtoiDefault converts a string to an int, returning def when the string is
// empty or unparsable. The list handlers use it for the page and page_size
// query parameters, where absent or garbage values fall back to defaults
// rather than erroring.
//
//	n := utils.AtoiDefault("42", 0) // 42
//	n = utils.AtoiDefault("", 20)   // 20
//	n = utils.AtoiDefault("x", 5)   // 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
