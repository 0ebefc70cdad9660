package service

import (
	"errors"

	"github.com/okian/guessconv/internal/adapters/repository"
)

var (
	// ErrUsernameRequired is returned for submissions without a username.
	ErrUsernameRequired = errors.New("Username is required") //nolint:staticcheck // shown to players verbatim
	// ErrNotConfigured is returned when no database is configured.
	ErrNotConfigured = repository.ErrNotConfigured
	// ErrAdminDisabled is returned by Reset when no admin token is configured.
	ErrAdminDisabled = errors.New("admin operations disabled")
	// ErrUnauthorized is returned by Reset for a wrong token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Stage names the step of a submission that failed.
type Stage string

// Submission stages.
const (
	StageLookup  Stage = "lookup"
	StageWrite   Stage = "write"
	StageRefresh Stage = "refresh"
)

// SubmitError reports a store failure during Submit.
type SubmitError struct {
	Stage Stage
	Err   error
}

func (e *SubmitError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *SubmitError) Unwrap() error { return e.Err }
