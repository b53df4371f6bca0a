package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when the account whose gists are listed does not exist.
	ErrUserNotFound = errors.New("user not found or gists unavailable")
	// ErrTargetNotFound is returned when the index gist does not exist or the token cannot write it.
	ErrTargetNotFound = errors.New("target gist not found or token lacks access to it")
)

// ConfigError reports a missing or invalid setting. It is always raised before any network call.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// PublishError wraps a failed write-back of the report into the index gist.
type PublishError struct {
	GistID string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to update gist %s: %v", e.GistID, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
