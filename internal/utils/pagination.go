// Package utils holds small helpers with no domain knowledge, shared by
// the HTTP and service layers.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, falling back to def when s is
// empty or not a number. Query parameters like ?page= and ?page_size= go
// through this before clamping.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds v to the inclusive range [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
