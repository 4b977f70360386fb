package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Auth errors
	ErrAuthMissing = errors.New("not logged in")
	ErrLoginFailed = errors.New("login failed: no usable token returned")

	// Storage errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCacheEntryNotFound = errors.New("cache entry not found")

	// Selection errors
	ErrNoFriendsSelected = errors.New("no friends selected")
	ErrUnknownFriend     = errors.New("friend not in friend list")

	// Fetch errors
	ErrSuperseded = errors.New("response superseded by a newer request")
)

// NetworkError is a transport failure or a non-2xx response from the backend
type NetworkError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s: HTTP %d: %s (%s)", e.Op, e.StatusCode, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError reports whether err is or wraps a NetworkError
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
