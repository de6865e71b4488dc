package workflow

import "errors"

// Sentinel errors for the claim status machine. Services treat all three as
// programming errors; callers never see them for well-formed requests.
var (
	ErrInvalidTransition = errors.New("claim status transition not allowed")
	ErrInvalidState      = errors.New("unknown claim status")
	ErrGuardFailed       = errors.New("claim status guard rejected transition")
)
