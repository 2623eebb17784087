package util

import (
	"strconv"
)

// ParseLimit reads an optional limit query value. Empty means 0, which callers
// treat as "use the configured default".
func ParseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, ErrInvalidLimit
	}
	if n > MaxViewLimit {
		return 0, ErrLimitTooHigh
	}
	return n, nil
}

// ParseBool treats "1" and "true" as true and anything else as false.
func ParseBool(s string) bool {
	return s == "1" || s == QueryTrue
}
