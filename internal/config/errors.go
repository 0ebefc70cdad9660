package config

import "errors"

// Sentinel errors returned by Load and Validate.
var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid guessconv config")
	// ErrLoadConfig wraps failures reading the .env, yaml or environment sources.
	ErrLoadConfig = errors.New("load guessconv config")
)
