package srs

import "errors"

// Sentinel errors for the srs package.
// Use errors.Is to check: errors.Is(err, srs.ErrNotFound)
var (
	ErrNotFound      = errors.New("srs: word record not found")
	ErrEmptyWord     = errors.New("srs: word must be non-empty")
	ErrInvalidConfig = errors.New("srs: invalid scheduler config")
	ErrBadSnapshot   = errors.New("srs: malformed snapshot")
)
