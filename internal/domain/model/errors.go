package model

import "errors"

// User facing validation errors. Their messages are shown to players as is.
var (
	ErrInvalidNumber = errors.New("Please enter a valid number")            //nolint:staticcheck // shown verbatim
	ErrOutOfRange    = errors.New("Please enter a value between 0 and 100") //nolint:staticcheck // shown verbatim

	ErrInvalidSubmission = errors.New("invalid submission")
)
