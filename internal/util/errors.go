package util

import "errors"

var (
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	ErrLimitTooHigh = errors.New("limit exceeds the maximum")
)
