package service

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork     = errors.New("content source unreachable")
	ErrPayload     = errors.New("malformed or unsuccessful content payload")
	ErrEmptyResult = errors.New("no eligible content after filtering")
)

const (
	ResourceModules          = "modules"
	ResourceAchievements     = "achievements"
	ResourceUserAchievements = "user_achievements"
)

// FetchError is the only error type ContentFetcher returns.
// Kind is one of ErrNetwork or ErrPayload.
type FetchError struct {
	Resource   string
	Kind       error
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.Resource, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func networkError(resource string, status int, err error) *FetchError {
	return &FetchError{Resource: resource, Kind: ErrNetwork, StatusCode: status, Err: err}
}

func payloadError(resource string, err error) *FetchError {
	return &FetchError{Resource: resource, Kind: ErrPayload, Err: err}
}

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
