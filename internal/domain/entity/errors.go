package entity

import "errors"

// Sentinel errors shared across layers. Wrap them with fmt.Errorf("%w: ...")
// and test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("not authorized")
	ErrConflict         = errors.New("conflict")
	ErrExternalDegraded = errors.New("external service degraded")
)
