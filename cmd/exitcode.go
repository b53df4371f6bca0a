package cmd

import (
	"errors"

	"github.com/naka-gawa/gist-index/internal/domain"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitConfig         = 1
	ExitUserNotFound   = 2
	ExitTargetNotFound = 4
	ExitPublishFailed  = 5
	ExitInternal       = 6
)

// exitError carries the exit code of a failure that has already been logged.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps an error from a run to the process exit code.
func exitCode(err error) int {
	var (
		exitErr *exitError
		cfgErr  *domain.ConfigError
		pubErr  *domain.PublishError
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.code
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.Is(err, domain.ErrUserNotFound):
		return ExitUserNotFound
	case errors.Is(err, domain.ErrTargetNotFound):
		return ExitTargetNotFound
	case errors.As(err, &pubErr):
		return ExitPublishFailed
	default:
		return ExitInternal
	}
}
