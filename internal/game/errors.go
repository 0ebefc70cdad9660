package game

import "errors"

// Sentinel errors for the game package.
var (
	ErrPersist   = errors.New("persist game state")
	ErrCorrupted = errors.New("stored game state is corrupted")
)
